// Package pkg holds infrastructure bootstrap helpers shared by the binary
// entrypoints.
package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/placement-portal/daily-quiz-service/internal/config"
	"github.com/placement-portal/daily-quiz-service/internal/models"
)

// InitDatabase opens the postgres connection pool. TranslateError is on so
// unique violations surface as gorm.ErrDuplicatedKey, which the attempt
// ledger's insert path relies on.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLevel := logger.Warn
	if cfg.Environment == "development" {
		gormLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(gormLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLife)

	if cfg.AutoMigrate {
		if err := migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.TopicAssignment{},
		&models.QuizAttempt{},
		&models.QuizQuestion{},
		&models.QuizSnapshot{},
	)
}
