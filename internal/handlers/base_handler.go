package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placement-portal/daily-quiz-service/internal/services"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
	"github.com/placement-portal/daily-quiz-service/internal/validator"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps data payloads that carry a message.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler provides logging and error mapping shared by all handlers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.FromContext(c, h.logger).Error(msg, args...)
}

// currentIdentity returns the authenticated caller set by the auth middleware.
// A missing identity aborts with 401.
func (h *BaseHandler) currentIdentity(c *gin.Context) (services.Identity, bool) {
	v, exists := c.Get(identityContextKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return services.Identity{}, false
	}
	identity, ok := v.(services.Identity)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return services.Identity{}, false
	}
	return identity, true
}

// handleServiceError maps service errors to HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{"rule": businessRuleError.Rule},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"operation": permissionError.Operation,
				"reason":    permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNoQuizToday), errors.Is(err, services.ErrGenerationFailed):
		// Callers cannot tell a generation failure apart from a day with
		// no assignment; the cause lives only in server logs.
		if errors.Is(err, services.ErrGenerationFailed) {
			h.LogError(c, err, "Question generation failed")
		}
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "No quiz scheduled for today"})
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Quiz not found"})
	case errors.Is(err, services.ErrQuizClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Quiz already submitted or not started"})
	case errors.Is(err, services.ErrReviewUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Review is available only after submission"})
	case errors.Is(err, services.ErrTopicNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Topic assignment not found"})
	case errors.Is(err, services.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Student not found"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Email already registered"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid email or password"})
	case errors.Is(err, services.ErrInvalidOTP):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid or expired verification code"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized access"})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
