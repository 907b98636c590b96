package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/services"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
)

type stubQuizService struct {
	beginResp *services.BeginQuizResponse
	beginErr  error
}

func (s *stubQuizService) BeginDaily(ctx context.Context, identity services.Identity, track models.QuizTrack) (*services.BeginQuizResponse, error) {
	return s.beginResp, s.beginErr
}

func (s *stubQuizService) GetStatus(ctx context.Context, identity services.Identity, track models.QuizTrack) (*services.QuizStatusResponse, error) {
	return &services.QuizStatusResponse{}, nil
}

func (s *stubQuizService) GetReview(ctx context.Context, identity services.Identity, track models.QuizTrack) (*services.ReviewResponse, error) {
	return &services.ReviewResponse{}, nil
}

type stubScoringService struct{}

func (s *stubScoringService) Submit(ctx context.Context, identity services.Identity, track models.QuizTrack, req *services.SubmitQuizRequest) (*services.SubmitQuizResponse, error) {
	return &services.SubmitQuizResponse{}, nil
}

func newQuizRouter(quiz services.QuizService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := NewQuizHandler(quiz, &stubScoringService{}, logger)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(identityContextKey, services.Identity{
			StudentID: "student-1",
			Email:     "student@example.com",
			Year:      3,
			Role:      models.RoleStudent,
		})
	})
	router.POST("/quiz/:track/begin", handler.BeginDaily)
	return router
}

func beginDaily(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quiz/placement/begin", nil)
	router.ServeHTTP(w, req)
	return w
}

// A failed generation call must read exactly like a day with no topic
// assignment, so clients cannot probe whether a quiz was configured.
func TestBeginDaily_GenerationFailureReadsAsNoQuiz(t *testing.T) {
	noTopic := beginDaily(newQuizRouter(&stubQuizService{
		beginErr: services.ErrNoQuizToday,
	}))
	generation := beginDaily(newQuizRouter(&stubQuizService{
		beginErr: fmt.Errorf("%w: provider unavailable", services.ErrGenerationFailed),
	}))

	if noTopic.Code != http.StatusNotFound {
		t.Fatalf("missing assignment: status = %d, want %d", noTopic.Code, http.StatusNotFound)
	}
	if !strings.Contains(noTopic.Body.String(), "No quiz scheduled for today") {
		t.Fatalf("missing assignment: unexpected body %s", noTopic.Body.String())
	}

	if generation.Code != noTopic.Code {
		t.Fatalf("generation failure status = %d, missing assignment status = %d; responses must match",
			generation.Code, noTopic.Code)
	}
	if generation.Body.String() != noTopic.Body.String() {
		t.Fatalf("generation failure body = %s, missing assignment body = %s; responses must match",
			generation.Body.String(), noTopic.Body.String())
	}
}

func TestBeginDaily_UnknownTrack(t *testing.T) {
	router := newQuizRouter(&stubQuizService{beginResp: &services.BeginQuizResponse{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/quiz/behavioural/begin", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
