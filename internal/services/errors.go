package services

import (
	"errors"
	"fmt"
)

// ===== QUIZ ERRORS =====

var (
	ErrNoQuizToday       = errors.New("no quiz scheduled for today")
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrQuizClosed        = errors.New("quiz already submitted or not started")
	ErrReviewUnavailable = errors.New("review available only after submission")

	// ErrGenerationFailed distinguishes a provider failure for logging and
	// tests only; at the HTTP surface it is reported as ErrNoQuizToday.
	ErrGenerationFailed = errors.New("question generation failed")
)

// ===== TOPIC ERRORS =====

var (
	ErrTopicNotFound = errors.New("topic assignment not found")
)

// ===== ACCOUNT ERRORS =====

var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrUnauthorized       = errors.New("unauthorized")
)

// BusinessRuleError carries a named rule violation so handlers can map it to a
// structured 422 response.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// PermissionError reports an operation the caller's role does not allow.
type PermissionError struct {
	Operation string
	Reason    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Operation, e.Reason)
}

func NewPermissionError(operation, reason string) *PermissionError {
	return &PermissionError{Operation: operation, Reason: reason}
}
