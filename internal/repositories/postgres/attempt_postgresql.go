package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

// AttemptPostgreSQL implements the attempt ledger on top of row-level locks.
// Every state transition for a (student, date, track) key goes through
// SELECT ... FOR UPDATE, so concurrent begins and submits for the same key
// serialize at the database; callers for different keys never contend.
type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// TryBegin closes the duplicate-attempt race: the locking read and the insert
// run inside the caller's transaction, so a second concurrent begin for the
// same key blocks on the lock and then observes the committed row. The unique
// index on (student_id, quiz_date, track) backs this up; a violation is
// reported as BeginAlreadyExists rather than an error.
func (a *AttemptPostgreSQL) TryBegin(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (repositories.BeginResult, error) {
	db := a.getDB(tx)

	var existing models.QuizAttempt
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND quiz_date = ? AND track = ?", studentID, quizDate, track).
		First(&existing).Error

	switch {
	case err == nil:
		return repositories.BeginAlreadyExists, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return 0, err
	}

	attempt := &models.QuizAttempt{
		StudentID: studentID,
		QuizDate:  quizDate,
		Track:     track,
		Status:    models.AttemptStarted,
	}
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repositories.BeginAlreadyExists, nil
		}
		return 0, err
	}

	return repositories.BeginCreated, nil
}

func (a *AttemptPostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizAttempt, error) {
	db := a.getDB(tx)

	var attempt models.QuizAttempt
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND quiz_date = ? AND track = ?", studentID, quizDate, track).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// MarkSubmitted finalizes a locked attempt. The status guard in the WHERE
// clause makes the transition idempotent with respect to already-committed
// state: a row that is no longer "started" is never rewritten.
func (a *AttemptPostgreSQL) MarkSubmitted(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt, score, total, timeTakenSeconds int) error {
	db := a.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptStarted).
		Updates(map[string]interface{}{
			"status":             models.AttemptSubmitted,
			"score":              score,
			"total":              total,
			"time_taken_seconds": timeTakenSeconds,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	attempt.Status = models.AttemptSubmitted
	attempt.Score = score
	attempt.Total = total
	attempt.TimeTakenSeconds = timeTakenSeconds
	return nil
}

func (a *AttemptPostgreSQL) Get(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizAttempt, error) {
	db := a.getDB(tx)

	var attempt models.QuizAttempt
	err := db.WithContext(ctx).
		Where("student_id = ? AND quiz_date = ? AND track = ?", studentID, quizDate, track).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (bool, error) {
	db := a.getDB(tx)

	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("student_id = ? AND quiz_date = ? AND track = ?", studentID, quizDate, track).
		Count(&count).Error
	return count > 0, err
}

func (a *AttemptPostgreSQL) GetLatest(ctx context.Context, tx *gorm.DB, studentID string, track models.QuizTrack) (*models.QuizAttempt, error) {
	db := a.getDB(tx)

	var attempt models.QuizAttempt
	err := db.WithContext(ctx).
		Where("student_id = ? AND track = ?", studentID, track).
		Order("quiz_date DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ListByMonth(ctx context.Context, tx *gorm.DB, studentID string, track models.QuizTrack, year int, month time.Month) ([]*models.QuizAttempt, error) {
	db := a.getDB(tx)

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var attempts []*models.QuizAttempt
	err := db.WithContext(ctx).
		Where("student_id = ? AND track = ? AND quiz_date >= ? AND quiz_date < ?", studentID, track, start, end).
		Order("quiz_date ASC").
		Find(&attempts).Error
	return attempts, err
}
