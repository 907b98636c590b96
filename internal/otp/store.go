// Package otp implements the short-lived one-time-passcode store used by the
// signup and password-reset flows. Codes live in redis under a TTL that
// doubles as their expiry; there is no process-local state, so multiple
// instances of the service share one passcode space.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/placement-portal/daily-quiz-service/internal/cache"
)

const (
	codeLength = 6

	// MaxAttempts is the number of wrong guesses tolerated before the code
	// is discarded.
	MaxAttempts = 3
)

var (
	ErrNotRequested = errors.New("otp not requested or expired")
	ErrExpired      = errors.New("otp expired")
	ErrTooMany      = errors.New("maximum otp attempts exceeded")
	ErrMismatch     = errors.New("invalid otp")
)

// attemptsSuffix names the per-address wrong-guess counter. The counter is a
// separate redis key so guesses are counted with INCR and the code entry is
// never rewritten, which keeps its TTL untouched.
const attemptsSuffix = ":attempts"

type entry struct {
	Code string `json:"code"`
}

// Store issues and verifies passcodes. Verification is one-shot: a correct
// code deletes the entry, so it can never be replayed.
type Store struct {
	helper *cache.CacheHelper
	ttl    time.Duration
	logger *slog.Logger
}

func NewStore(helper *cache.CacheHelper, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = cache.OTPCacheConfig.TTL
	}
	return &Store{
		helper: helper,
		ttl:    ttl,
		logger: logger,
	}
}

// Issue generates a fresh 6-digit code for the address, replacing any code
// already outstanding.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	key := normalize(email)
	if err := s.helper.Set(ctx, key, entry{Code: code}, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	// A fresh code starts with a fresh guess budget.
	if err := s.helper.Delete(ctx, key+attemptsSuffix); err != nil {
		s.logger.Error("Failed to reset otp attempts", "error", err)
	}

	s.logger.Info("OTP issued", "email", key, "ttl", s.ttl)
	return code, nil
}

// Verify checks a submitted code. Wrong guesses bump an atomic counter, so
// concurrent verifiers never get more than MaxAttempts guesses between them;
// both exhaustion and success remove the entry.
func (s *Store) Verify(ctx context.Context, email, submitted string) error {
	key := normalize(email)

	var e entry
	if err := s.helper.Get(ctx, key, &e); err != nil {
		if errors.Is(err, cache.ErrCacheNotFound) {
			return ErrNotRequested
		}
		return fmt.Errorf("failed to load otp: %w", err)
	}

	if submitted != e.Code {
		attempts, err := s.helper.Increment(ctx, key+attemptsSuffix, s.ttl)
		if err != nil {
			s.logger.Error("Failed to record otp attempt", "error", err)
			return ErrMismatch
		}
		if attempts >= MaxAttempts {
			// Only the code is removed here. The counter stays until its
			// TTL runs out, so a guess racing the deletion cannot recreate
			// it at zero and win extra attempts.
			_ = s.helper.Delete(ctx, key)
			return ErrTooMany
		}
		return ErrMismatch
	}

	if err := s.helper.Delete(ctx, key, key+attemptsSuffix); err != nil {
		s.logger.Error("Failed to consume otp", "error", err)
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
