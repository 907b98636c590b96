package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/cache"
	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
)

const leaderboardLimit = 50

type studentService struct {
	repo        repositories.Repository
	logger      *slog.Logger
	clock       utils.Clock
	leaderboard *cache.CacheHelper
}

func NewStudentService(repo repositories.Repository, logger *slog.Logger, clock utils.Clock, leaderboard *cache.CacheHelper) StudentService {
	return &studentService{
		repo:        repo,
		logger:      logger,
		clock:       clock,
		leaderboard: leaderboard,
	}
}

func (s *studentService) TodayResult(ctx context.Context, identity Identity, track models.QuizTrack) (*TodayResultResponse, error) {
	quizDate := s.clock.Today()

	attempt, err := s.repo.Attempt().Get(ctx, nil, identity.StudentID, quizDate, track)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &TodayResultResponse{Attempted: false}, nil
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	return &TodayResultResponse{
		Attempted:        true,
		Submitted:        attempt.Status == models.AttemptSubmitted,
		Score:            attempt.Score,
		Total:            attempt.Total,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
	}, nil
}

func (s *studentService) MarksHistory(ctx context.Context, identity Identity, track models.QuizTrack, year int, month time.Month) (*MarksHistoryResponse, error) {
	now := s.clock.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}

	entries, err := s.repo.Dashboard().MarksHistory(ctx, nil, identity.StudentID, track, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load marks history: %w", err)
	}

	return &MarksHistoryResponse{
		Track:   track,
		Year:    year,
		Month:   int(month),
		Entries: entries,
	}, nil
}

// Leaderboard ranks today's submitted attempts for one batch year. Results
// are served from redis when fresh; the underlying join runs at most once per
// cache window.
func (s *studentService) Leaderboard(ctx context.Context, track models.QuizTrack, batchYear int) (*LeaderboardResponse, error) {
	quizDate := s.clock.Today()
	cacheKey := fmt.Sprintf("%s:%s:%d", quizDate.Format(quizDateFormat), track, batchYear)

	var cached LeaderboardResponse
	err := s.leaderboard.Get(ctx, cacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
		s.logger.Warn("Leaderboard cache read failed", "error", err)
	}

	entries, err := s.repo.Dashboard().DailyLeaderboard(ctx, nil, quizDate, track, batchYear, leaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	resp := &LeaderboardResponse{
		QuizDate: quizDate.Format(quizDateFormat),
		Track:    track,
		Year:     batchYear,
		Entries:  entries,
	}

	if err := s.leaderboard.Set(ctx, cacheKey, resp, cache.LeaderboardCacheConfig.TTL); err != nil {
		s.logger.Warn("Leaderboard cache write failed", "error", err)
	}
	return resp, nil
}

func (s *studentService) Profile(ctx context.Context, identity Identity) (*StudentProfile, error) {
	student, err := s.repo.User().GetByUID(ctx, nil, identity.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	return toStudentProfile(student), nil
}

func (s *studentService) UpdatePhoto(ctx context.Context, identity Identity, photoURL string) error {
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repo.User().UpdatePhotoURL(ctx, tx, identity.StudentID, photoURL)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to update photo: %w", err)
	}
	return nil
}

func toStudentProfile(student *models.Student) *StudentProfile {
	return &StudentProfile{
		UID:        student.UID,
		Email:      student.Email,
		Name:       student.Name,
		Year:       student.Year,
		Department: student.Department,
		Role:       student.Role,
		PhotoURL:   student.PhotoURL,
	}
}
