package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/services"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	studentService services.StudentService
}

func NewStudentHandler(studentService services.StudentService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler:    NewBaseHandler(logger),
		studentService: studentService,
	}
}

func parseTrackQuery(c *gin.Context) (models.QuizTrack, bool) {
	track := models.QuizTrack(c.DefaultQuery("track", string(models.TrackPlacement)))
	switch track {
	case models.TrackPlacement, models.TrackTechnical:
		return track, true
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unknown quiz track",
			Details: "track must be one of: placement, technical",
		})
		return "", false
	}
}

// TodayResult returns the caller's result for today's quiz
// @Summary Get today's result
// @Tags students
// @Produce json
// @Success 200 {object} services.TodayResultResponse
// @Router /students/me/today [get]
func (h *StudentHandler) TodayResult(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	track, ok := parseTrackQuery(c)
	if !ok {
		return
	}

	resp, err := h.studentService.TodayResult(c.Request.Context(), identity, track)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarksHistory returns the caller's scores for one month
// @Summary Get monthly marks history
// @Tags students
// @Produce json
// @Param year query int false "Calendar year"
// @Param month query int false "Month 1-12"
// @Success 200 {object} services.MarksHistoryResponse
// @Router /students/me/marks [get]
func (h *StudentHandler) MarksHistory(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	track, ok := parseTrackQuery(c)
	if !ok {
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))
	monthNum, _ := strconv.Atoi(c.Query("month"))
	if monthNum < 0 || monthNum > 12 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Month must be between 1 and 12"})
		return
	}

	resp, err := h.studentService.MarksHistory(c.Request.Context(), identity, track, year, time.Month(monthNum))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Leaderboard returns today's ranking for one batch year
// @Summary Get today's leaderboard
// @Tags students
// @Produce json
// @Param year query int false "Batch year, defaults to caller's"
// @Success 200 {object} services.LeaderboardResponse
// @Router /students/leaderboard [get]
func (h *StudentHandler) Leaderboard(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	track, ok := parseTrackQuery(c)
	if !ok {
		return
	}

	batchYear := identity.Year
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid year"})
			return
		}
		batchYear = parsed
	}

	resp, err := h.studentService.Leaderboard(c.Request.Context(), track, batchYear)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Profile returns the caller's account profile
// @Summary Get own profile
// @Tags students
// @Produce json
// @Success 200 {object} services.StudentProfile
// @Router /students/me [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	resp, err := h.studentService.Profile(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type updatePhotoRequest struct {
	PhotoURL string `json:"photo_url" binding:"required,url"`
}

// UpdatePhoto sets the caller's profile photo URL
// @Summary Update profile photo
// @Tags students
// @Accept json
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /students/me/photo [put]
func (h *StudentHandler) UpdatePhoto(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	var req updatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.studentService.UpdatePhoto(c.Request.Context(), identity, req.PhotoURL); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Photo updated"})
}
