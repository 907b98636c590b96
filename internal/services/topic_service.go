package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
	"github.com/placement-portal/daily-quiz-service/internal/validator"
)

type topicService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTopicService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) TopicService {
	return &topicService{
		repo:      repo,
		logger:    logger,
		validator: v,
	}
}

func (s *topicService) Upsert(ctx context.Context, identity Identity, req *UpsertTopicRequest) (*TopicResponse, error) {
	if !identity.IsAdmin() {
		return nil, NewPermissionError("topic upsert", "administrator role required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quizDate, err := time.ParseInLocation(quizDateFormat, req.QuizDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid quiz date: %w", err)
	}

	assignment := &models.TopicAssignment{
		QuizDate:   quizDate,
		Track:      req.Track,
		Topic:      strings.TrimSpace(req.Topic),
		Difficulty: req.Difficulty,
		CreatedBy:  identity.StudentID,
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repo.Topic().Upsert(ctx, tx, assignment)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert topic: %w", err)
	}

	s.logger.Info("Topic assigned",
		"quiz_date", req.QuizDate,
		"track", req.Track,
		"topic", assignment.Topic,
		"difficulty", req.Difficulty,
		"by", identity.StudentID)

	return toTopicResponse(assignment), nil
}

func (s *topicService) Get(ctx context.Context, quizDate time.Time, track models.QuizTrack) (*TopicResponse, error) {
	assignment, err := s.repo.Topic().GetAssignment(ctx, nil, quizDate, track)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	return toTopicResponse(assignment), nil
}

func (s *topicService) Delete(ctx context.Context, identity Identity, quizDate time.Time, track models.QuizTrack) error {
	if !identity.IsAdmin() {
		return NewPermissionError("topic delete", "administrator role required")
	}

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repo.Topic().Delete(ctx, tx, quizDate, track)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTopicNotFound
		}
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return nil
}

func (s *topicService) List(ctx context.Context, req *ListTopicsRequest) (*ListTopicsResponse, error) {
	filters := repositories.TopicFilters{
		Track:     req.Track,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortOrder: req.SortOrder,
	}

	assignments, total, err := s.repo.Topic().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}

	topics := make([]TopicResponse, len(assignments))
	for i, a := range assignments {
		topics[i] = *toTopicResponse(a)
	}
	return &ListTopicsResponse{Topics: topics, Total: total}, nil
}

// ImportWorkbook reads the first sheet of an xlsx file with columns
// quiz_date, track, topic, difficulty. Each valid row is upserted on its own;
// bad rows are collected into the result instead of aborting the import.
func (s *topicService) ImportWorkbook(ctx context.Context, identity Identity, r io.Reader) (*TopicImportResult, error) {
	if !identity.IsAdmin() {
		return nil, NewPermissionError("topic import", "administrator role required")
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	result := &TopicImportResult{}
	for i, row := range rows {
		rowNum := i + 1
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if len(row) < 4 {
			result.Errors = append(result.Errors, TopicImportError{Row: rowNum, Message: "expected 4 columns: quiz_date, track, topic, difficulty"})
			continue
		}

		req := &UpsertTopicRequest{
			QuizDate:   strings.TrimSpace(row[0]),
			Track:      models.QuizTrack(strings.ToLower(strings.TrimSpace(row[1]))),
			Topic:      strings.TrimSpace(row[2]),
			Difficulty: models.DifficultyLevel(strings.ToLower(strings.TrimSpace(row[3]))),
		}
		if _, err := s.Upsert(ctx, identity, req); err != nil {
			result.Errors = append(result.Errors, TopicImportError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Imported++
	}

	s.logger.Info("Topic workbook imported",
		"imported", result.Imported,
		"rejected", len(result.Errors),
		"by", identity.StudentID)

	return result, nil
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "quiz_date" || first == "date"
}

func toTopicResponse(a *models.TopicAssignment) *TopicResponse {
	return &TopicResponse{
		ID:         a.ID,
		QuizDate:   a.QuizDate.Format(quizDateFormat),
		Track:      a.Track,
		Topic:      a.Topic,
		Difficulty: a.Difficulty,
		CreatedBy:  a.CreatedBy,
		UpdatedAt:  a.UpdatedAt,
	}
}
