package repositories

import (
	"time"

	"github.com/placement-portal/daily-quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TopicFilters struct {
	Track     *models.QuizTrack `json:"track"`
	DateFrom  *time.Time        `json:"date_from"`
	DateTo    *time.Time        `json:"date_to"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
	SortOrder string            `json:"sort_order"` // "asc", "desc" on quiz_date
}

// ===== READ-MODEL STRUCTS =====

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	StudentID        string `json:"student_id"`
	Name             string `json:"name"`
	Score            int    `json:"score"`
	Total            int    `json:"total"`
	TimeTakenSeconds int    `json:"time_taken_seconds"`
}

type MarksHistoryEntry struct {
	QuizDate time.Time `json:"quiz_date"`
	Score    int       `json:"score"`
	Total    int       `json:"total"`
	Status   string    `json:"status"`
}
