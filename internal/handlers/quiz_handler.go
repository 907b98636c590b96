package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/services"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService    services.QuizService
	scoringService services.ScoringService
}

func NewQuizHandler(quizService services.QuizService, scoringService services.ScoringService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler:    NewBaseHandler(logger),
		quizService:    quizService,
		scoringService: scoringService,
	}
}

// parseTrack validates the :track path parameter. Returns "" after writing a
// 400 when the track is unknown.
func (h *QuizHandler) parseTrack(c *gin.Context) models.QuizTrack {
	track := models.QuizTrack(c.Param("track"))
	switch track {
	case models.TrackPlacement, models.TrackTechnical:
		return track
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unknown quiz track",
			Details: "track must be one of: placement, technical",
		})
		return ""
	}
}

// BeginDaily claims and serves today's quiz
// @Summary Begin today's quiz
// @Tags quiz
// @Produce json
// @Param track path string true "Quiz track"
// @Success 200 {object} services.BeginQuizResponse
// @Failure 404 {object} ErrorResponse
// @Router /quiz/{track}/begin [post]
func (h *QuizHandler) BeginDaily(c *gin.Context) {
	track := h.parseTrack(c)
	if track == "" {
		return
	}
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Beginning daily quiz", "track", track, "student_id", identity.StudentID)

	resp, err := h.quizService.BeginDaily(c.Request.Context(), identity, track)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStatus reports whether today's quiz was already attempted
// @Summary Get today's quiz status
// @Tags quiz
// @Produce json
// @Param track path string true "Quiz track"
// @Success 200 {object} services.QuizStatusResponse
// @Router /quiz/{track}/status [get]
func (h *QuizHandler) GetStatus(c *gin.Context) {
	track := h.parseTrack(c)
	if track == "" {
		return
	}
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	resp, err := h.quizService.GetStatus(c.Request.Context(), identity, track)
	if err != nil {
		// Fail closed: when the status cannot be determined the client must
		// not be told the quiz is still open.
		h.LogError(c, err, "Failed to check quiz status")
		c.JSON(http.StatusInternalServerError, services.QuizStatusResponse{Attempted: true})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Submit grades today's quiz
// @Summary Submit today's quiz answers
// @Tags quiz
// @Accept json
// @Produce json
// @Param track path string true "Quiz track"
// @Param submission body services.SubmitQuizRequest true "Selected answers"
// @Success 200 {object} services.SubmitQuizResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quiz/{track}/submit [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	track := h.parseTrack(c)
	if track == "" {
		return
	}
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	var req services.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting quiz", "track", track, "student_id", identity.StudentID)

	resp, err := h.scoringService.Submit(c.Request.Context(), identity, track, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetReview returns the graded answer key after submission
// @Summary Review today's submitted quiz
// @Tags quiz
// @Produce json
// @Param track path string true "Quiz track"
// @Success 200 {object} services.ReviewResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quiz/{track}/review [get]
func (h *QuizHandler) GetReview(c *gin.Context) {
	track := h.parseTrack(c)
	if track == "" {
		return
	}
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	resp, err := h.quizService.GetReview(c.Request.Context(), identity, track)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
