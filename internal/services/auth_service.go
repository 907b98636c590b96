package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/mailer"
	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/otp"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
	"github.com/placement-portal/daily-quiz-service/internal/validator"
)

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret []byte
	TokenTTL  time.Duration
}

// AuthClaims is the JWT payload issued at login and parsed by the auth
// middleware.
type AuthClaims struct {
	Email string          `json:"email"`
	Year  int             `json:"year"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	otp       *otp.Store
	mailer    mailer.Mailer
	config    AuthConfig
}

func NewAuthService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	otpStore *otp.Store,
	m mailer.Mailer,
	config AuthConfig,
) AuthService {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}
	return &authService{
		repo:      repo,
		logger:    logger,
		validator: v,
		otp:       otpStore,
		mailer:    m,
		config:    config,
	}
}

func (s *authService) RequestSignupOTP(ctx context.Context, req *RequestOTPRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	email := normalizeEmail(req.Email)

	exists, err := s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}

	return s.issueAndMail(ctx, email, "Your signup verification code")
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	email := normalizeEmail(req.Email)

	if err := s.verifyOTP(ctx, email, req.OTP); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	student := &models.Student{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Year:         req.Year,
		Department:   strings.TrimSpace(req.Department),
		Role:         models.RoleStudent,
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repo.User().Create(ctx, tx, student)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("Student account created", "uid", student.UID, "year", student.Year)
	return s.buildAuthResponse(student)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	student, err := s.repo.User().GetByEmail(ctx, nil, normalizeEmail(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Same error as a bad password; login must not confirm which
			// emails are registered.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.buildAuthResponse(student)
}

func (s *authService) RequestPasswordReset(ctx context.Context, req *RequestOTPRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	email := normalizeEmail(req.Email)

	exists, err := s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if !exists {
		// Silently accept so the endpoint cannot be used to probe for
		// registered addresses.
		s.logger.Info("Password reset requested for unknown email")
		return nil
	}

	return s.issueAndMail(ctx, email, "Your password reset code")
}

func (s *authService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	email := normalizeEmail(req.Email)

	if err := s.verifyOTP(ctx, email, req.OTP); err != nil {
		return err
	}

	student, err := s.repo.User().GetByEmail(ctx, nil, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to load account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repo.User().UpdatePassword(ctx, tx, student.UID, string(hash))
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password reset completed", "uid", student.UID)
	return nil
}

// ===== HELPERS =====

const otpTTLMinutes = 5

func (s *authService) issueAndMail(ctx context.Context, email, subject string) error {
	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to issue otp: %w", err)
	}

	body := fmt.Sprintf(
		"<p>Your verification code is <b>%s</b>.</p><p>It expires in %d minutes.</p>",
		code, int(otpTTLMinutes))
	if err := s.mailer.Send(email, subject, body); err != nil {
		return fmt.Errorf("failed to send otp mail: %w", err)
	}
	return nil
}

func (s *authService) verifyOTP(ctx context.Context, email, code string) error {
	err := s.otp.Verify(ctx, email, code)
	if err == nil {
		return nil
	}
	if errors.Is(err, otp.ErrNotRequested) || errors.Is(err, otp.ErrMismatch) ||
		errors.Is(err, otp.ErrTooMany) || errors.Is(err, otp.ErrExpired) {
		return fmt.Errorf("%w: %v", ErrInvalidOTP, err)
	}
	return fmt.Errorf("otp verification failed: %w", err)
}

func (s *authService) buildAuthResponse(student *models.Student) (*AuthResponse, error) {
	expiresAt := time.Now().Add(s.config.TokenTTL)

	claims := AuthClaims{
		Email: student.Email,
		Year:  student.Year,
		Role:  student.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   student.UID,
			Issuer:    "daily-quiz-service",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Student:   *toStudentProfile(student),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
