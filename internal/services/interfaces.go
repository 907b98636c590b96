package services

import (
	"context"
	"io"
	"time"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

// Identity is the authenticated caller, extracted from the JWT by middleware
// and passed down by parameter. Services never read tokens themselves.
type Identity struct {
	StudentID string
	Email     string
	Year      int
	Role      models.UserRole
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

// ===== QUIZ DTOS =====

// QuestionPayload is the student-facing shape of one question. It never
// carries the correct answer.
type QuestionPayload struct {
	ID       uint     `json:"question_id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type BeginQuizResponse struct {
	Attempted bool              `json:"attempted"`
	QuizDate  string            `json:"quiz_date,omitempty"`
	Track     models.QuizTrack  `json:"track,omitempty"`
	Topic     string            `json:"topic,omitempty"`
	Questions []QuestionPayload `json:"questions,omitempty"`
}

type QuizStatusResponse struct {
	Attempted bool `json:"attempted"`
}

type SubmittedAnswer struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Selected   string `json:"selected" validate:"required"`
}

type SubmitQuizRequest struct {
	Answers          []SubmittedAnswer `json:"answers" validate:"required,min=1,dive"`
	TimeTakenSeconds int               `json:"time_taken_seconds" validate:"gte=0"`
}

type SubmitQuizResponse struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

type ReviewEntry struct {
	Question      string  `json:"question"`
	YourAnswer    *string `json:"your_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	Correct       bool    `json:"correct"`
}

type ReviewResponse struct {
	QuizDate string           `json:"quiz_date"`
	Track    models.QuizTrack `json:"track"`
	Score    int              `json:"score"`
	Total    int              `json:"total"`
	Entries  []ReviewEntry    `json:"entries"`
}

// ===== DASHBOARD DTOS =====

type TodayResultResponse struct {
	Attempted        bool `json:"attempted"`
	Submitted        bool `json:"submitted"`
	Score            int  `json:"score"`
	Total            int  `json:"total"`
	TimeTakenSeconds int  `json:"time_taken_seconds"`
}

type MarksHistoryResponse struct {
	Track   models.QuizTrack                 `json:"track"`
	Year    int                              `json:"year"`
	Month   int                              `json:"month"`
	Entries []*repositories.MarksHistoryEntry `json:"entries"`
}

type LeaderboardResponse struct {
	QuizDate string                          `json:"quiz_date"`
	Track    models.QuizTrack                `json:"track"`
	Year     int                             `json:"year"`
	Entries  []*repositories.LeaderboardEntry `json:"entries"`
}

// ===== TOPIC DTOS =====

type UpsertTopicRequest struct {
	QuizDate   string                 `json:"quiz_date" validate:"required,datetime=2006-01-02"`
	Track      models.QuizTrack       `json:"track" validate:"required,oneof=placement technical"`
	Topic      string                 `json:"topic" validate:"required,min=2,max=255"`
	Difficulty models.DifficultyLevel `json:"difficulty" validate:"required,oneof=easy medium hard very_hard"`
}

type TopicResponse struct {
	ID         uint                   `json:"id"`
	QuizDate   string                 `json:"quiz_date"`
	Track      models.QuizTrack       `json:"track"`
	Topic      string                 `json:"topic"`
	Difficulty models.DifficultyLevel `json:"difficulty"`
	CreatedBy  string                 `json:"created_by"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

type ListTopicsRequest struct {
	Track     *models.QuizTrack `json:"track"`
	DateFrom  *time.Time        `json:"date_from"`
	DateTo    *time.Time        `json:"date_to"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
	SortOrder string            `json:"sort_order"`
}

type ListTopicsResponse struct {
	Topics []TopicResponse `json:"topics"`
	Total  int64           `json:"total"`
}

// TopicImportError is one rejected row from a workbook import.
type TopicImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type TopicImportResult struct {
	Imported int                `json:"imported"`
	Errors   []TopicImportError `json:"errors,omitempty"`
}

// ===== AUTH DTOS =====

type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SignupRequest struct {
	Email      string `json:"email" validate:"required,email"`
	OTP        string `json:"otp" validate:"required,len=6"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Name       string `json:"name" validate:"required,min=2,max=255"`
	Year       int    `json:"year" validate:"required,gte=1,lte=4"`
	Department string `json:"department" validate:"max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type StudentProfile struct {
	UID        string          `json:"uid"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Year       int             `json:"year"`
	Department string          `json:"department"`
	Role       models.UserRole `json:"role"`
	PhotoURL   *string         `json:"photo_url"`
}

type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Student   StudentProfile `json:"student"`
}

// ===== SERVICE INTERFACES =====

// QuizService runs the daily quiz lifecycle for one student: claiming the
// attempt, generating and serving questions, and post-submission review.
type QuizService interface {
	// BeginDaily claims today's attempt for the caller. At most one call per
	// (student, day, track) ever receives questions; every other call gets
	// Attempted=true with no question data.
	BeginDaily(ctx context.Context, identity Identity, track models.QuizTrack) (*BeginQuizResponse, error)

	GetStatus(ctx context.Context, identity Identity, track models.QuizTrack) (*QuizStatusResponse, error)
	GetReview(ctx context.Context, identity Identity, track models.QuizTrack) (*ReviewResponse, error)
}

// ScoringService grades submissions against the stored answer key.
type ScoringService interface {
	// Submit grades the caller's open attempt exactly once. A second call for
	// the same key fails with ErrQuizClosed and changes nothing.
	Submit(ctx context.Context, identity Identity, track models.QuizTrack, req *SubmitQuizRequest) (*SubmitQuizResponse, error)
}

// TopicService is the administrator surface for topic scheduling.
type TopicService interface {
	Upsert(ctx context.Context, identity Identity, req *UpsertTopicRequest) (*TopicResponse, error)
	Get(ctx context.Context, quizDate time.Time, track models.QuizTrack) (*TopicResponse, error)
	Delete(ctx context.Context, identity Identity, quizDate time.Time, track models.QuizTrack) error
	List(ctx context.Context, req *ListTopicsRequest) (*ListTopicsResponse, error)

	// ImportWorkbook ingests an xlsx sheet of (date, track, topic, difficulty)
	// rows. Valid rows are upserted; invalid rows are reported, not fatal.
	ImportWorkbook(ctx context.Context, identity Identity, r io.Reader) (*TopicImportResult, error)
}

// StudentService serves read-only dashboard data.
type StudentService interface {
	TodayResult(ctx context.Context, identity Identity, track models.QuizTrack) (*TodayResultResponse, error)
	MarksHistory(ctx context.Context, identity Identity, track models.QuizTrack, year int, month time.Month) (*MarksHistoryResponse, error)
	Leaderboard(ctx context.Context, track models.QuizTrack, batchYear int) (*LeaderboardResponse, error)
	Profile(ctx context.Context, identity Identity) (*StudentProfile, error)
	UpdatePhoto(ctx context.Context, identity Identity, photoURL string) error
}

// AuthService owns accounts, credentials and passcode flows.
type AuthService interface {
	RequestSignupOTP(ctx context.Context, req *RequestOTPRequest) error
	Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RequestPasswordReset(ctx context.Context, req *RequestOTPRequest) error
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) error
}

// ServiceManager wires and owns all service instances.
type ServiceManager interface {
	Quiz() QuizService
	Scoring() ScoringService
	Topic() TopicService
	Student() StudentService
	Auth() AuthService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
