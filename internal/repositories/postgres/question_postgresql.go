package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

// QuestionPostgreSQL implements the answer key store. Rows are written once at
// generation time; the only mutation ever applied afterwards is RecordAnswer
// during the submit transaction.
type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	db := q.getDB(tx)
	return db.WithContext(ctx).Create(&questions).Error
}

func (q *QuestionPostgreSQL) ListForQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) ([]*models.QuizQuestion, error) {
	db := q.getDB(tx)

	var questions []*models.QuizQuestion
	err := db.WithContext(ctx).
		Where("student_id = ? AND quiz_date = ? AND track = ?", studentID, quizDate, track).
		Order("id ASC").
		Find(&questions).Error
	return questions, err
}

func (q *QuestionPostgreSQL) RecordAnswer(ctx context.Context, tx *gorm.DB, questionID uint, studentID string, quizDate time.Time, track models.QuizTrack, selected string) error {
	db := q.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.QuizQuestion{}).
		Where("id = ? AND student_id = ? AND quiz_date = ? AND track = ?", questionID, studentID, quizDate, track).
		Update("student_answer", selected)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) DeleteBefore(ctx context.Context, tx *gorm.DB, studentID string, cutoff time.Time) error {
	db := q.getDB(tx)
	return db.WithContext(ctx).
		Where("student_id = ? AND quiz_date < ?", studentID, cutoff).
		Delete(&models.QuizQuestion{}).Error
}

// SnapshotPostgreSQL stores the served question payload per quiz.
type SnapshotPostgreSQL struct {
	db *gorm.DB
}

func NewSnapshotPostgreSQL(db *gorm.DB) repositories.SnapshotRepository {
	return &SnapshotPostgreSQL{db: db}
}

func (s *SnapshotPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SnapshotPostgreSQL) Create(ctx context.Context, tx *gorm.DB, snapshot *models.QuizSnapshot) error {
	db := s.getDB(tx)
	return db.WithContext(ctx).Create(snapshot).Error
}

func (s *SnapshotPostgreSQL) Get(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizSnapshot, error) {
	db := s.getDB(tx)

	var snapshot models.QuizSnapshot
	err := db.WithContext(ctx).
		Where("student_id = ? AND quiz_date = ? AND track = ?", studentID, quizDate, track).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

func (s *SnapshotPostgreSQL) DeleteBefore(ctx context.Context, tx *gorm.DB, studentID string, cutoff time.Time) error {
	db := s.getDB(tx)
	return db.WithContext(ctx).
		Where("student_id = ? AND quiz_date < ?", studentID, cutoff).
		Delete(&models.QuizSnapshot{}).Error
}
