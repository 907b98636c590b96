// Package events publishes quiz lifecycle events for downstream consumers
// (notifications, analytics). Publishing is best-effort: the submit
// transaction has already committed by the time an event goes out, and a
// failed publish is logged, never surfaced to the student.
package events

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/placement-portal/daily-quiz-service/internal/models"
)

const (
	EventQuizStarted   = "quiz.started"
	EventQuizSubmitted = "quiz.submitted"

	eventSource  = "daily-quiz-service"
	eventVersion = "1.0"
)

// Event is the envelope every published message shares.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// QuizStartedEvent is emitted after a begin commits an attempt row.
type QuizStartedEvent struct {
	StudentID string           `json:"student_id"`
	QuizDate  string           `json:"quiz_date"`
	Track     models.QuizTrack `json:"track"`
}

// QuizSubmittedEvent is emitted after a submission commits its score.
type QuizSubmittedEvent struct {
	StudentID        string           `json:"student_id"`
	QuizDate         string           `json:"quiz_date"`
	Track            models.QuizTrack `json:"track"`
	Score            int              `json:"score"`
	Total            int              `json:"total"`
	TimeTakenSeconds int              `json:"time_taken_seconds"`
}

// EventPublisher delivers events to the configured transport.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close() error
}

// NewEvent wraps payload data in the standard envelope.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// MockEventPublisher records events in memory for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(_ context.Context, eventType string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := NewEvent(eventType, data)
	m.events = append(m.events, event)
	m.logger.Debug("Mock event published", "type", eventType, "id", event.ID)
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

// GetPublishedEvents returns a copy of everything published so far.
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ClearEvents discards recorded events.
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
