package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

// stubRepository is an in-memory repositories.Repository. A single mutex
// stands in for the database row lock: WithTransaction holds it for the whole
// callback, so transactions serialize exactly like competing row-locked
// transactions do in postgres. Methods called with a nil tx take the lock
// themselves for the duration of the call.
type stubRepository struct {
	mu sync.Mutex

	attempts  map[attemptKey]*models.QuizAttempt
	questions map[uint]*models.QuizQuestion
	snapshots map[attemptKey]*models.QuizSnapshot
	topics    map[topicKey]*models.TopicAssignment
	users     map[string]*models.Student

	nextAttemptID  uint
	nextQuestionID uint
}

type attemptKey struct {
	student string
	date    string
	track   models.QuizTrack
}

type topicKey struct {
	date  string
	track models.QuizTrack
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func newStubRepository() *stubRepository {
	return &stubRepository{
		attempts:  make(map[attemptKey]*models.QuizAttempt),
		questions: make(map[uint]*models.QuizQuestion),
		snapshots: make(map[attemptKey]*models.QuizSnapshot),
		topics:    make(map[topicKey]*models.TopicAssignment),
		users:     make(map[string]*models.Student),
	}
}

// txMarker is the non-nil *gorm.DB handed to transaction callbacks so the
// sub-repositories can tell "lock already held" from "lock needed".
var txMarker = &gorm.DB{}

func (r *stubRepository) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(txMarker)
}

// lockIfNeeded locks the repository unless the caller is already inside a
// transaction. It returns the matching unlock.
func (r *stubRepository) lockIfNeeded(tx *gorm.DB) func() {
	if tx != nil {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *stubRepository) Attempt() repositories.AttemptRepository     { return (*stubAttemptRepo)(r) }
func (r *stubRepository) Question() repositories.QuestionRepository   { return (*stubQuestionRepo)(r) }
func (r *stubRepository) Snapshot() repositories.SnapshotRepository   { return (*stubSnapshotRepo)(r) }
func (r *stubRepository) Topic() repositories.TopicRepository         { return (*stubTopicRepo)(r) }
func (r *stubRepository) User() repositories.UserRepository           { return (*stubUserRepo)(r) }
func (r *stubRepository) Dashboard() repositories.DashboardRepository { return (*stubDashboardRepo)(r) }

func (r *stubRepository) Ping(context.Context) error { return nil }
func (r *stubRepository) Close() error               { return nil }

// seedTopic registers a topic assignment outside any transaction.
func (r *stubRepository) seedTopic(quizDate time.Time, track models.QuizTrack, topic string, difficulty models.DifficultyLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[topicKey{dateKey(quizDate), track}] = &models.TopicAssignment{
		QuizDate:   quizDate,
		Track:      track,
		Topic:      topic,
		Difficulty: difficulty,
	}
}

// questionRows returns the answer key rows for one key, ordered by id.
func (r *stubRepository) questionRows(studentID string, quizDate time.Time, track models.QuizTrack) []*models.QuizQuestion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listQuestionsLocked(studentID, quizDate, track)
}

func (r *stubRepository) listQuestionsLocked(studentID string, quizDate time.Time, track models.QuizTrack) []*models.QuizQuestion {
	var out []*models.QuizQuestion
	for _, q := range r.questions {
		if q.StudentID == studentID && dateKey(q.QuizDate) == dateKey(quizDate) && q.Track == track {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ===== ATTEMPTS =====

type stubAttemptRepo stubRepository

func (r *stubAttemptRepo) TryBegin(_ context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (repositories.BeginResult, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	key := attemptKey{studentID, dateKey(quizDate), track}
	if _, ok := r.attempts[key]; ok {
		return repositories.BeginAlreadyExists, nil
	}

	r.nextAttemptID++
	r.attempts[key] = &models.QuizAttempt{
		ID:        r.nextAttemptID,
		StudentID: studentID,
		QuizDate:  quizDate,
		Track:     track,
		Status:    models.AttemptStarted,
		CreatedAt: time.Now(),
	}
	return repositories.BeginCreated, nil
}

func (r *stubAttemptRepo) GetForUpdate(_ context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizAttempt, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	attempt, ok := r.attempts[attemptKey{studentID, dateKey(quizDate), track}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return attempt, nil
}

func (r *stubAttemptRepo) MarkSubmitted(_ context.Context, tx *gorm.DB, attempt *models.QuizAttempt, score, total, timeTakenSeconds int) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	stored, ok := r.attempts[attemptKey{attempt.StudentID, dateKey(attempt.QuizDate), attempt.Track}]
	if !ok || stored.Status != models.AttemptStarted {
		return repositories.ErrNotFound
	}
	stored.Status = models.AttemptSubmitted
	stored.Score = score
	stored.Total = total
	stored.TimeTakenSeconds = timeTakenSeconds
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *stubAttemptRepo) Get(_ context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizAttempt, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	attempt, ok := r.attempts[attemptKey{studentID, dateKey(quizDate), track}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *stubAttemptRepo) Exists(_ context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (bool, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	_, ok := r.attempts[attemptKey{studentID, dateKey(quizDate), track}]
	return ok, nil
}

func (r *stubAttemptRepo) GetLatest(_ context.Context, tx *gorm.DB, studentID string, track models.QuizTrack) (*models.QuizAttempt, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	var latest *models.QuizAttempt
	for _, a := range r.attempts {
		if a.StudentID != studentID || a.Track != track {
			continue
		}
		if latest == nil || a.QuizDate.After(latest.QuizDate) {
			latest = a
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *stubAttemptRepo) ListByMonth(_ context.Context, tx *gorm.DB, studentID string, track models.QuizTrack, year int, month time.Month) ([]*models.QuizAttempt, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	var out []*models.QuizAttempt
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.Track == track &&
			a.QuizDate.Year() == year && a.QuizDate.Month() == month {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizDate.Before(out[j].QuizDate) })
	return out, nil
}

// ===== QUESTIONS =====

type stubQuestionRepo stubRepository

func (r *stubQuestionRepo) CreateBatch(_ context.Context, tx *gorm.DB, questions []*models.QuizQuestion) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	for _, q := range questions {
		r.nextQuestionID++
		q.ID = r.nextQuestionID
		copied := *q
		r.questions[q.ID] = &copied
	}
	return nil
}

func (r *stubQuestionRepo) ListForQuiz(_ context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) ([]*models.QuizQuestion, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()
	return (*stubRepository)(r).listQuestionsLocked(studentID, quizDate, track), nil
}

func (r *stubQuestionRepo) RecordAnswer(_ context.Context, tx *gorm.DB, questionID uint, studentID string, quizDate time.Time, track models.QuizTrack, selected string) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	q, ok := r.questions[questionID]
	if !ok || q.StudentID != studentID || dateKey(q.QuizDate) != dateKey(quizDate) || q.Track != track {
		return repositories.ErrNotFound
	}
	q.StudentAnswer = &selected
	return nil
}

func (r *stubQuestionRepo) DeleteBefore(_ context.Context, tx *gorm.DB, studentID string, cutoff time.Time) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	for id, q := range r.questions {
		if q.StudentID == studentID && q.QuizDate.Before(cutoff) {
			delete(r.questions, id)
		}
	}
	return nil
}

// ===== SNAPSHOTS =====

type stubSnapshotRepo stubRepository

func (r *stubSnapshotRepo) Create(_ context.Context, tx *gorm.DB, snapshot *models.QuizSnapshot) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	key := attemptKey{snapshot.StudentID, dateKey(snapshot.QuizDate), snapshot.Track}
	copied := *snapshot
	r.snapshots[key] = &copied
	return nil
}

func (r *stubSnapshotRepo) Get(_ context.Context, tx *gorm.DB, studentID string, quizDate time.Time, track models.QuizTrack) (*models.QuizSnapshot, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	snapshot, ok := r.snapshots[attemptKey{studentID, dateKey(quizDate), track}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *snapshot
	return &copied, nil
}

func (r *stubSnapshotRepo) DeleteBefore(_ context.Context, tx *gorm.DB, studentID string, cutoff time.Time) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	for key, s := range r.snapshots {
		if s.StudentID == studentID && s.QuizDate.Before(cutoff) {
			delete(r.snapshots, key)
		}
	}
	return nil
}

// ===== TOPICS =====

type stubTopicRepo stubRepository

func (r *stubTopicRepo) GetAssignment(_ context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack) (*models.TopicAssignment, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	assignment, ok := r.topics[topicKey{dateKey(quizDate), track}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *assignment
	return &copied, nil
}

func (r *stubTopicRepo) Upsert(_ context.Context, tx *gorm.DB, assignment *models.TopicAssignment) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	copied := *assignment
	copied.UpdatedAt = time.Now()
	r.topics[topicKey{dateKey(assignment.QuizDate), assignment.Track}] = &copied
	return nil
}

func (r *stubTopicRepo) Delete(_ context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	key := topicKey{dateKey(quizDate), track}
	if _, ok := r.topics[key]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.topics, key)
	return nil
}

func (r *stubTopicRepo) List(_ context.Context, tx *gorm.DB, filters repositories.TopicFilters) ([]*models.TopicAssignment, int64, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	var out []*models.TopicAssignment
	for _, a := range r.topics {
		if filters.Track != nil && a.Track != *filters.Track {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizDate.Before(out[j].QuizDate) })
	return out, int64(len(out)), nil
}

// ===== USERS =====

type stubUserRepo stubRepository

func (r *stubUserRepo) Create(_ context.Context, tx *gorm.DB, student *models.Student) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	for _, existing := range r.users {
		if existing.Email == student.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	copied := *student
	r.users[student.UID] = &copied
	return nil
}

func (r *stubUserRepo) GetByUID(_ context.Context, tx *gorm.DB, uid string) (*models.Student, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	student, ok := r.users[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *student
	return &copied, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, tx *gorm.DB, email string) (*models.Student, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	for _, student := range r.users {
		if student.Email == email {
			copied := *student
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, tx *gorm.DB, uid string, passwordHash string) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	student, ok := r.users[uid]
	if !ok {
		return repositories.ErrNotFound
	}
	student.PasswordHash = passwordHash
	return nil
}

func (r *stubUserRepo) UpdatePhotoURL(_ context.Context, tx *gorm.DB, uid string, photoURL string) error {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	student, ok := r.users[uid]
	if !ok {
		return repositories.ErrNotFound
	}
	student.PhotoURL = &photoURL
	return nil
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, tx *gorm.DB, email string) (bool, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	for _, student := range r.users {
		if student.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// ===== DASHBOARD =====

type stubDashboardRepo stubRepository

func (r *stubDashboardRepo) DailyLeaderboard(_ context.Context, tx *gorm.DB, quizDate time.Time, track models.QuizTrack, year int, limit int) ([]*repositories.LeaderboardEntry, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	var entries []*repositories.LeaderboardEntry
	for _, a := range r.attempts {
		if dateKey(a.QuizDate) != dateKey(quizDate) || a.Track != track || a.Status != models.AttemptSubmitted {
			continue
		}
		student, ok := r.users[a.StudentID]
		if !ok || student.Year != year {
			continue
		}
		entries = append(entries, &repositories.LeaderboardEntry{
			StudentID:        a.StudentID,
			Name:             student.Name,
			Score:            a.Score,
			Total:            a.Total,
			TimeTakenSeconds: a.TimeTakenSeconds,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].TimeTakenSeconds < entries[j].TimeTakenSeconds
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries, nil
}

func (r *stubDashboardRepo) MarksHistory(_ context.Context, tx *gorm.DB, studentID string, track models.QuizTrack, year int, month time.Month) ([]*repositories.MarksHistoryEntry, error) {
	defer (*stubRepository)(r).lockIfNeeded(tx)()

	var out []*repositories.MarksHistoryEntry
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.Track == track &&
			a.QuizDate.Year() == year && a.QuizDate.Month() == month {
			out = append(out, &repositories.MarksHistoryEntry{
				QuizDate: a.QuizDate,
				Score:    a.Score,
				Total:    a.Total,
				Status:   string(a.Status),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizDate.Before(out[j].QuizDate) })
	return out, nil
}
