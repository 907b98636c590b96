package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

// PostgreSQLRepository wires the gorm-backed sub-repositories together.
type PostgreSQLRepository struct {
	db *gorm.DB

	attempt   repositories.AttemptRepository
	question  repositories.QuestionRepository
	snapshot  repositories.SnapshotRepository
	topic     repositories.TopicRepository
	user      repositories.UserRepository
	dashboard repositories.DashboardRepository
}

func NewPostgreSQLRepository(db *gorm.DB) repositories.Repository {
	return &PostgreSQLRepository{
		db:        db,
		attempt:   NewAttemptPostgreSQL(db),
		question:  NewQuestionPostgreSQL(db),
		snapshot:  NewSnapshotPostgreSQL(db),
		topic:     NewTopicPostgreSQL(db),
		user:      NewUserPostgreSQL(db),
		dashboard: NewDashboardPostgreSQL(db),
	}
}

func (r *PostgreSQLRepository) Attempt() repositories.AttemptRepository     { return r.attempt }
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository   { return r.question }
func (r *PostgreSQLRepository) Snapshot() repositories.SnapshotRepository   { return r.snapshot }
func (r *PostgreSQLRepository) Topic() repositories.TopicRepository         { return r.topic }
func (r *PostgreSQLRepository) User() repositories.UserRepository           { return r.user }
func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository { return r.dashboard }

// WithTransaction runs fn inside one database transaction. Sub-repository
// methods called with the tx handle participate in it; the lock acquired by
// GetForUpdate/TryBegin is held until fn returns.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
