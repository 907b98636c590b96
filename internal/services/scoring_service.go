package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/events"
	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
	"github.com/placement-portal/daily-quiz-service/internal/validator"
)

type scoringService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	clock     utils.Clock
	publisher events.EventPublisher
}

func NewScoringService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	clock utils.Clock,
	publisher events.EventPublisher,
) ScoringService {
	return &scoringService{
		repo:      repo,
		logger:    logger,
		validator: v,
		clock:     clock,
		publisher: publisher,
	}
}

// Submit grades today's attempt inside one transaction. The attempt row is
// re-read under an exclusive lock, so two racing submits for the same key
// serialize: the first one to commit wins, the loser observes "submitted" and
// fails with ErrQuizClosed without touching any row.
//
// The score counts exact text matches between the selected option and the
// stored correct answer. The denominator is the number of answer key rows,
// not the number of submitted answers; omitted questions simply score zero.
func (s *scoringService) Submit(ctx context.Context, identity Identity, track models.QuizTrack, req *SubmitQuizRequest) (*SubmitQuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quizDate := s.clock.Today()

	s.logger.Info("Submitting quiz",
		"student_id", identity.StudentID,
		"quiz_date", quizDate.Format(quizDateFormat),
		"track", track,
		"answers", len(req.Answers))

	var score, total int
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, err := s.repo.Attempt().GetForUpdate(ctx, tx, identity.StudentID, quizDate, track)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizClosed
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}

		if attempt.IsClosed() {
			return ErrQuizClosed
		}

		questions, err := s.repo.Question().ListForQuiz(ctx, tx, identity.StudentID, quizDate, track)
		if err != nil {
			return fmt.Errorf("failed to load answer key: %w", err)
		}
		if len(questions) == 0 {
			// Attempt claimed but generation never delivered questions.
			return ErrQuizNotFound
		}

		correctByID := make(map[uint]string, len(questions))
		for _, q := range questions {
			correctByID[q.ID] = q.CorrectAnswer
		}
		total = len(questions)

		seen := make(map[uint]bool, len(req.Answers))
		for _, answer := range req.Answers {
			correct, ok := correctByID[answer.QuestionID]
			if !ok || seen[answer.QuestionID] {
				// Unknown or duplicated ids are ignored rather than rejected;
				// they can never raise the score.
				continue
			}
			seen[answer.QuestionID] = true

			if err := s.repo.Question().RecordAnswer(ctx, tx, answer.QuestionID, identity.StudentID, quizDate, track, answer.Selected); err != nil {
				return fmt.Errorf("failed to record answer: %w", err)
			}
			if answer.Selected == correct {
				score++
			}
		}

		return s.repo.Attempt().MarkSubmitted(ctx, tx, attempt, score, total, req.TimeTakenSeconds)
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.EventQuizSubmitted, events.QuizSubmittedEvent{
		StudentID:        identity.StudentID,
		QuizDate:         quizDate.Format(quizDateFormat),
		Track:            track,
		Score:            score,
		Total:            total,
		TimeTakenSeconds: req.TimeTakenSeconds,
	}); err != nil {
		s.logger.Warn("Failed to publish quiz submitted event", "error", err)
	}

	s.logger.Info("Quiz submitted",
		"student_id", identity.StudentID,
		"score", score,
		"total", total)

	return &SubmitQuizResponse{Score: score, Total: total}, nil
}
