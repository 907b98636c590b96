package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/cache"
	"github.com/placement-portal/daily-quiz-service/internal/events"
	"github.com/placement-portal/daily-quiz-service/internal/generator"
	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
)

// QuizBatchSize is the number of questions in every daily quiz.
const QuizBatchSize = 10

// quizDateFormat renders the civil date in API payloads and cache keys.
const quizDateFormat = "2006-01-02"

type quizService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	generator *generator.Generator
	clock     utils.Clock
	publisher events.EventPublisher
	snapshots *cache.CacheHelper
}

func NewQuizService(
	repo repositories.Repository,
	logger *slog.Logger,
	gen *generator.Generator,
	clock utils.Clock,
	publisher events.EventPublisher,
	snapshots *cache.CacheHelper,
) QuizService {
	return &quizService{
		repo:      repo,
		logger:    logger,
		generator: gen,
		clock:     clock,
		publisher: publisher,
		snapshots: snapshots,
	}
}

// BeginDaily runs the commit-then-generate protocol:
//
//  1. claim the attempt row under a row lock and commit it,
//  2. call the generator with no lock or transaction held,
//  3. persist answer key and snapshot in a second transaction.
//
// The attempt row committed in step 1 is what makes concurrent begins for the
// same key collapse to a single winner. If step 2 or 3 fails, the attempt
// stays in "started" state with no questions; the day is still consumed.
func (s *quizService) BeginDaily(ctx context.Context, identity Identity, track models.QuizTrack) (*BeginQuizResponse, error) {
	quizDate := s.clock.Today()

	s.logger.Info("Begin daily quiz",
		"student_id", identity.StudentID,
		"quiz_date", quizDate.Format(quizDateFormat),
		"track", track)

	s.sweepExpired(ctx, identity.StudentID, quizDate)

	var result repositories.BeginResult
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.repo.Attempt().TryBegin(ctx, tx, identity.StudentID, quizDate, track)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim attempt: %w", err)
	}

	if result == repositories.BeginAlreadyExists {
		s.logger.Info("Attempt already exists",
			"student_id", identity.StudentID,
			"quiz_date", quizDate.Format(quizDateFormat),
			"track", track)
		return &BeginQuizResponse{Attempted: true}, nil
	}

	assignment, err := s.repo.Topic().GetAssignment(ctx, nil, quizDate, track)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// The claimed attempt stays in "started" state; the day is spent
			// even though no questions were ever served.
			s.logger.Warn("No topic assigned for today",
				"quiz_date", quizDate.Format(quizDateFormat),
				"track", track)
			return nil, ErrNoQuizToday
		}
		return nil, fmt.Errorf("failed to load topic assignment: %w", err)
	}

	// No lock is held across this call. Generation latency never blocks other
	// students' begins or submits.
	batch, err := s.generator.Generate(ctx, assignment.Topic, assignment.Difficulty, QuizBatchSize)
	if err != nil {
		s.logger.Error("Generation failed, attempt left open with no questions",
			"student_id", identity.StudentID,
			"topic", assignment.Topic,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	payload, err := s.persistBatch(ctx, identity.StudentID, quizDate, track, batch)
	if err != nil {
		return nil, err
	}

	s.cacheSnapshot(ctx, identity.StudentID, quizDate, track, payload)

	if err := s.publisher.Publish(ctx, events.EventQuizStarted, events.QuizStartedEvent{
		StudentID: identity.StudentID,
		QuizDate:  quizDate.Format(quizDateFormat),
		Track:     track,
	}); err != nil {
		s.logger.Warn("Failed to publish quiz started event", "error", err)
	}

	return &BeginQuizResponse{
		Attempted: false,
		QuizDate:  quizDate.Format(quizDateFormat),
		Track:     track,
		Topic:     assignment.Topic,
		Questions: payload,
	}, nil
}

// persistBatch writes the answer key rows and the served-payload snapshot in
// one transaction. Either all rows land or none do.
func (s *quizService) persistBatch(ctx context.Context, studentID string, quizDate time.Time, track models.QuizTrack, batch []generator.GeneratedQuestion) ([]QuestionPayload, error) {
	rows := make([]*models.QuizQuestion, len(batch))
	for i, q := range batch {
		rows[i] = &models.QuizQuestion{
			StudentID:     studentID,
			QuizDate:      quizDate,
			Track:         track,
			QuestionText:  q.Question,
			CorrectAnswer: q.CorrectOptionText(),
		}
	}

	var payload []QuestionPayload
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Question().CreateBatch(ctx, tx, rows); err != nil {
			return fmt.Errorf("failed to persist answer key: %w", err)
		}

		payload = make([]QuestionPayload, len(batch))
		for i, q := range batch {
			payload[i] = QuestionPayload{
				ID:       rows[i].ID,
				Question: q.Question,
				Options:  q.Options,
			}
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}

		return s.repo.Snapshot().Create(ctx, tx, &models.QuizSnapshot{
			StudentID: studentID,
			QuizDate:  quizDate,
			Track:     track,
			Questions: raw,
		})
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *quizService) GetStatus(ctx context.Context, identity Identity, track models.QuizTrack) (*QuizStatusResponse, error) {
	quizDate := s.clock.Today()

	attempted, err := s.repo.Attempt().Exists(ctx, nil, identity.StudentID, quizDate, track)
	if err != nil {
		return nil, fmt.Errorf("failed to check attempt status: %w", err)
	}
	return &QuizStatusResponse{Attempted: attempted}, nil
}

// GetReview exposes the answer key for today's quiz, but only once the
// attempt is submitted. Before that the key never leaves the server.
func (s *quizService) GetReview(ctx context.Context, identity Identity, track models.QuizTrack) (*ReviewResponse, error) {
	quizDate := s.clock.Today()

	attempt, err := s.repo.Attempt().Get(ctx, nil, identity.StudentID, quizDate, track)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	if attempt.Status != models.AttemptSubmitted {
		return nil, ErrReviewUnavailable
	}

	questions, err := s.repo.Question().ListForQuiz(ctx, nil, identity.StudentID, quizDate, track)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	entries := make([]ReviewEntry, len(questions))
	for i, q := range questions {
		correct := q.StudentAnswer != nil && *q.StudentAnswer == q.CorrectAnswer
		entries[i] = ReviewEntry{
			Question:      q.QuestionText,
			YourAnswer:    q.StudentAnswer,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       correct,
		}
	}

	return &ReviewResponse{
		QuizDate: quizDate.Format(quizDateFormat),
		Track:    attempt.Track,
		Score:    attempt.Score,
		Total:    attempt.Total,
		Entries:  entries,
	}, nil
}

// sweepExpired drops the caller's question and snapshot rows from previous
// days. Best effort; a failed sweep never blocks the quiz.
func (s *quizService) sweepExpired(ctx context.Context, studentID string, cutoff time.Time) {
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Question().DeleteBefore(ctx, tx, studentID, cutoff); err != nil {
			return err
		}
		return s.repo.Snapshot().DeleteBefore(ctx, tx, studentID, cutoff)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Retention sweep failed", "student_id", studentID, "error", err)
	}
}

func (s *quizService) cacheSnapshot(ctx context.Context, studentID string, quizDate time.Time, track models.QuizTrack, payload []QuestionPayload) {
	key := fmt.Sprintf("%s:%s:%s", studentID, quizDate.Format(quizDateFormat), track)
	if err := s.snapshots.Set(ctx, key, payload, cache.SnapshotCacheConfig.TTL); err != nil {
		s.logger.Warn("Failed to cache quiz snapshot", "error", err)
	}
}
