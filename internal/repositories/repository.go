package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/models"
)

// Repository aggregates all sub-repositories used by the quiz service.
type Repository interface {
	Attempt() AttemptRepository
	Question() QuestionRepository
	Snapshot() SnapshotRepository
	Topic() TopicRepository
	User() UserRepository
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// BeginResult is the outcome of AttemptRepository.TryBegin.
type BeginResult int

const (
	BeginCreated BeginResult = iota
	BeginAlreadyExists
)

// AttemptRepository is the attempt ledger. TryBegin and GetForUpdate must take
// a database-level exclusive lock on the (student, date, track) key so that
// concurrent begins and submits for the same key serialize; a plain
// check-then-insert is not acceptable here.
type AttemptRepository interface {
	// TryBegin locks the key, and inserts a new attempt in "started" state if
	// and only if none exists. Check and insert run inside tx.
	TryBegin(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (BeginResult, error)

	// GetForUpdate re-reads the attempt row under an exclusive lock.
	GetForUpdate(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizAttempt, error)

	// MarkSubmitted transitions a locked "started" row to "submitted" with the
	// final score. Caller must hold the row lock via GetForUpdate in the same tx.
	MarkSubmitted(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt, score, total, timeTakenSeconds int) error

	Get(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizAttempt, error)
	Exists(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (bool, error)
	GetLatest(ctx context.Context, tx *gorm.DB, studentID string, track models.QuizTrack) (*models.QuizAttempt, error)
	ListByMonth(ctx context.Context, tx *gorm.DB, studentID string, track models.QuizTrack, year int, month time.Month) ([]*models.QuizAttempt, error)
}

// QuestionRepository is the answer key store.
type QuestionRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.QuizQuestion) error
	ListForQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) ([]*models.QuizQuestion, error)

	// RecordAnswer stores the student's selected text against one question.
	// Scoped by owner key so a student can never write another student's row.
	RecordAnswer(ctx context.Context, tx *gorm.DB, questionID uint, studentID string, quizDate time.Time, track models.QuizTrack, selected string) error

	// DeleteBefore removes a student's answer-key rows older than the cutoff
	// date (retention sweep).
	DeleteBefore(ctx context.Context, tx *gorm.DB, studentID string, cutoff time.Time) error
}

// SnapshotRepository stores the served question payload for audit/replay.
type SnapshotRepository interface {
	Create(ctx context.Context, tx *gorm.DB, snapshot *models.QuizSnapshot) error
	Get(ctx context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizSnapshot, error)
	DeleteBefore(ctx context.Context, tx *gorm.DB, studentID string, cutoff time.Time) error
}

// TopicRepository manages administrator topic assignments.
type TopicRepository interface {
	GetAssignment(ctx context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack) (*models.TopicAssignment, error)
	Upsert(ctx context.Context, tx *gorm.DB, assignment *models.TopicAssignment) error
	Delete(ctx context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack) error
	List(ctx context.Context, tx *gorm.DB, filters TopicFilters) ([]*models.TopicAssignment, int64, error)
}

// UserRepository owns student accounts and credentials.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, student *models.Student) error
	GetByUID(ctx context.Context, tx *gorm.DB, uid string) (*models.Student, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Student, error)
	UpdatePassword(ctx context.Context, tx *gorm.DB, uid string, passwordHash string) error
	UpdatePhotoURL(ctx context.Context, tx *gorm.DB, uid string, photoURL string) error
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
}

// DashboardRepository serves read-only aggregation queries (leaderboard,
// history). No invariants live here.
type DashboardRepository interface {
	DailyLeaderboard(ctx context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack, year int, limit int) ([]*LeaderboardEntry, error)
	MarksHistory(ctx context.Context, tx *gorm.DB, studentID string, track models.QuizTrack, year int, month time.Month) ([]*MarksHistoryEntry, error)
}
