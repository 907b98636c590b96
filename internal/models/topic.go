package models

import "time"

type QuizTrack string

const (
	TrackPlacement QuizTrack = "placement"
	TrackTechnical QuizTrack = "technical"
)

type DifficultyLevel string

const (
	DifficultyEasy     DifficultyLevel = "easy"
	DifficultyMedium   DifficultyLevel = "medium"
	DifficultyHard     DifficultyLevel = "hard"
	DifficultyVeryHard DifficultyLevel = "very_hard"
)

// TopicAssignment is the administrator-configured (topic, difficulty) pair for
// one day and track. Read-only from the quiz core's perspective.
type TopicAssignment struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	QuizDate   time.Time       `json:"quiz_date" gorm:"not null;type:date;uniqueIndex:idx_topic_date_track"`
	Track      QuizTrack       `json:"track" gorm:"not null;size:32;uniqueIndex:idx_topic_date_track"`
	Topic      string          `json:"topic" gorm:"not null;type:text"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"not null;size:16"`

	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TopicAssignment) TableName() string { return "topic_assignments" }
