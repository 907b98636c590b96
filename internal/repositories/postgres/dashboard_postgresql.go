package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

type dashboardPostgreSQL struct {
	db *gorm.DB
}

func NewDashboardPostgreSQL(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardPostgreSQL{db: db}
}

func (d *dashboardPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return d.db
}

// DailyLeaderboard ranks submitted attempts for a day by score, ties broken by
// time taken. Only submitted attempts appear.
func (d *dashboardPostgreSQL) DailyLeaderboard(ctx context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack, year int, limit int) ([]*repositories.LeaderboardEntry, error) {
	db := d.getDB(tx)

	var entries []*repositories.LeaderboardEntry
	err := db.WithContext(ctx).
		Table("quiz_attempts").
		Select("quiz_attempts.student_id, students.name, quiz_attempts.score, quiz_attempts.total, quiz_attempts.time_taken_seconds").
		Joins("JOIN students ON students.uid = quiz_attempts.student_id").
		Where("quiz_attempts.quiz_date = ? AND quiz_attempts.track = ? AND quiz_attempts.status = ? AND students.year = ?",
			quizDate, track, models.AttemptSubmitted, year).
		Order("quiz_attempts.score DESC, quiz_attempts.time_taken_seconds ASC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}

	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries, nil
}

func (d *dashboardPostgreSQL) MarksHistory(ctx context.Context, tx *gorm.DB, studentID string, track models.QuizTrack, year int, month time.Month) ([]*repositories.MarksHistoryEntry, error) {
	db := d.getDB(tx)

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var entries []*repositories.MarksHistoryEntry
	err := db.WithContext(ctx).
		Table("quiz_attempts").
		Select("quiz_date, score, total, status").
		Where("student_id = ? AND track = ? AND quiz_date >= ? AND quiz_date < ?", studentID, track, start, end).
		Order("quiz_date ASC").
		Scan(&entries).Error
	return entries, err
}
