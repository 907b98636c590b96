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

// maxWorkbookSize bounds uploaded topic sheets.
const maxWorkbookSize = 5 << 20

type TopicHandler struct {
	BaseHandler
	topicService services.TopicService
}

func NewTopicHandler(topicService services.TopicService, logger utils.Logger) *TopicHandler {
	return &TopicHandler{
		BaseHandler:  NewBaseHandler(logger),
		topicService: topicService,
	}
}

// UpsertTopic assigns or replaces a day's topic
// @Summary Assign a quiz topic
// @Tags topics
// @Accept json
// @Produce json
// @Param topic body services.UpsertTopicRequest true "Topic assignment"
// @Success 200 {object} services.TopicResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /topics [put]
func (h *TopicHandler) UpsertTopic(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	var req services.UpsertTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	h.LogRequest(c, "Upserting topic", "quiz_date", req.QuizDate, "track", req.Track)

	resp, err := h.topicService.Upsert(c.Request.Context(), identity, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetTopic returns one day's assignment
// @Summary Get a topic assignment
// @Tags topics
// @Produce json
// @Param date path string true "Quiz date YYYY-MM-DD"
// @Param track path string true "Quiz track"
// @Success 200 {object} services.TopicResponse
// @Failure 404 {object} ErrorResponse
// @Router /topics/{track}/{date} [get]
func (h *TopicHandler) GetTopic(c *gin.Context) {
	quizDate, track, ok := h.parseDateAndTrack(c)
	if !ok {
		return
	}

	resp, err := h.topicService.Get(c.Request.Context(), quizDate, track)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteTopic removes one day's assignment
// @Summary Delete a topic assignment
// @Tags topics
// @Produce json
// @Param date path string true "Quiz date YYYY-MM-DD"
// @Param track path string true "Quiz track"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /topics/{track}/{date} [delete]
func (h *TopicHandler) DeleteTopic(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	quizDate, track, ok := h.parseDateAndTrack(c)
	if !ok {
		return
	}

	if err := h.topicService.Delete(c.Request.Context(), identity, quizDate, track); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Topic removed"})
}

// ListTopics lists assignments with optional filters
// @Summary List topic assignments
// @Tags topics
// @Produce json
// @Param track query string false "Quiz track"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.ListTopicsResponse
// @Router /topics [get]
func (h *TopicHandler) ListTopics(c *gin.Context) {
	req := &services.ListTopicsRequest{
		SortOrder: c.DefaultQuery("sort", "asc"),
	}

	if raw := c.Query("track"); raw != "" {
		track := models.QuizTrack(raw)
		if track != models.TrackPlacement && track != models.TrackTechnical {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unknown quiz track"})
			return
		}
		req.Track = &track
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid from date"})
			return
		}
		req.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid to date"})
			return
		}
		req.DateTo = &to
	}
	req.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	req.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.topicService.List(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ImportTopics bulk-loads assignments from an uploaded xlsx sheet
// @Summary Import topic assignments from xlsx
// @Tags topics
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook with quiz_date, track, topic, difficulty columns"
// @Success 200 {object} services.TopicImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /topics/import [post]
func (h *TopicHandler) ImportTopics(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Missing workbook file", Details: err.Error()})
		return
	}
	if fileHeader.Size > maxWorkbookSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Workbook exceeds size limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Cannot read workbook", Details: err.Error()})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing topic workbook", "filename", fileHeader.Filename, "size", fileHeader.Size)

	result, err := h.topicService.ImportWorkbook(c.Request.Context(), identity, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TopicHandler) parseDateAndTrack(c *gin.Context) (time.Time, models.QuizTrack, bool) {
	quizDate, err := time.ParseInLocation("2006-01-02", c.Param("date"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid quiz date, want YYYY-MM-DD"})
		return time.Time{}, "", false
	}

	track := models.QuizTrack(c.Param("track"))
	if track != models.TrackPlacement && track != models.TrackTechnical {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unknown quiz track"})
		return time.Time{}, "", false
	}
	return quizDate, track, true
}
