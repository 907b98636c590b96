package models

import (
	"time"
)

type AttemptStatus string

const (
	AttemptStarted   AttemptStatus = "started"
	AttemptSubmitted AttemptStatus = "submitted"
)

// QuizAttempt is the per-(student, day, track) ledger row. Its row lock is the
// only concurrency-control anchor for the daily quiz: at most one row may ever
// exist for a key, and the status transitions once, started -> submitted.
type QuizAttempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	StudentID string        `json:"student_id" gorm:"not null;size:64;uniqueIndex:idx_student_date_track"`
	QuizDate  time.Time     `json:"quiz_date" gorm:"not null;type:date;uniqueIndex:idx_student_date_track"`
	Track     QuizTrack     `json:"track" gorm:"not null;size:32;uniqueIndex:idx_student_date_track"`
	Status    AttemptStatus `json:"status" gorm:"not null;default:started;index"`

	Score            int `json:"score"`
	Total            int `json:"total"`
	TimeTakenSeconds int `json:"time_taken_seconds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Student Student `json:"-" gorm:"foreignKey:StudentID"`
}

func (QuizAttempt) TableName() string { return "quiz_attempts" }

// IsClosed reports whether the attempt can no longer accept a submission.
func (a *QuizAttempt) IsClosed() bool {
	return a.Status != AttemptStarted
}
