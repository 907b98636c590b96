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

type TopicPostgreSQL struct {
	db *gorm.DB
}

func NewTopicPostgreSQL(db *gorm.DB) repositories.TopicRepository {
	return &TopicPostgreSQL{db: db}
}

func (t *TopicPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TopicPostgreSQL) GetAssignment(ctx context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack) (*models.TopicAssignment, error) {
	db := t.getDB(tx)

	var assignment models.TopicAssignment
	err := db.WithContext(ctx).
		Where("quiz_date = ? AND track = ?", quizDate, track).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// Upsert replaces any existing assignment for the (quiz_date, track) key, so
// an administrator can correct a topic before the day starts.
func (t *TopicPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, assignment *models.TopicAssignment) error {
	db := t.getDB(tx)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "quiz_date"}, {Name: "track"}},
			DoUpdates: clause.AssignmentColumns([]string{"topic", "difficulty", "created_by", "updated_at"}),
		}).
		Create(assignment).Error
}

func (t *TopicPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack) error {
	db := t.getDB(tx)

	result := db.WithContext(ctx).
		Where("quiz_date = ? AND track = ?", quizDate, track).
		Delete(&models.TopicAssignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (t *TopicPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TopicFilters) ([]*models.TopicAssignment, int64, error) {
	db := t.getDB(tx)

	query := db.WithContext(ctx).Model(&models.TopicAssignment{})
	query = applyTopicFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters)

	var assignments []*models.TopicAssignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}
