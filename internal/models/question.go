package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizQuestion is an answer-key row: one generated question with its resolved
// correct option text, owned by exactly one attempt (same student, date and
// track). StudentAnswer is written at most once, during submission, and the
// whole set is immutable after the attempt reaches "submitted".
type QuizQuestion struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	StudentID string    `json:"student_id" gorm:"not null;size:64;index:idx_question_key"`
	QuizDate  time.Time `json:"quiz_date" gorm:"not null;type:date;index:idx_question_key"`
	Track     QuizTrack `json:"track" gorm:"not null;size:32;index:idx_question_key"`

	QuestionText  string  `json:"question_text" gorm:"not null;type:text"`
	CorrectAnswer string  `json:"correct_answer" gorm:"not null;type:text"`
	StudentAnswer *string `json:"student_answer" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizQuestion) TableName() string { return "quiz_questions" }

// QuizSnapshot is the audit/cache record of the exact student-facing question
// list served for a (student, date, track), stored as jsonb. It never contains
// correct answers.
type QuizSnapshot struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	StudentID string         `json:"student_id" gorm:"not null;size:64;uniqueIndex:idx_snapshot_key"`
	QuizDate  time.Time      `json:"quiz_date" gorm:"not null;type:date;uniqueIndex:idx_snapshot_key"`
	Track     QuizTrack      `json:"track" gorm:"not null;size:32;uniqueIndex:idx_snapshot_key"`
	Questions datatypes.JSON `json:"questions" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

func (QuizSnapshot) TableName() string { return "quiz_snapshots" }
