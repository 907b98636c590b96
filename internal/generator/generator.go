package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/placement-portal/daily-quiz-service/internal/llm"
	"github.com/placement-portal/daily-quiz-service/internal/models"
)

// OptionCount is the number of labeled options every generated question carries.
const OptionCount = 4

// GeneratedQuestion is one validated item from a generation batch.
type GeneratedQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// CorrectOptionText resolves the single-letter answer key to the option text
// it labels. Validation guarantees the letter is in range.
func (q GeneratedQuestion) CorrectOptionText() string {
	idx := int(q.Answer[0] - 'A')
	return q.Options[idx]
}

// ErrInvalidBatch is returned whenever the provider output violates the batch
// contract. Callers must treat generation as all-or-nothing: no partial batch
// is ever returned alongside this error.
type ErrInvalidBatch struct {
	Reason string
}

func (e *ErrInvalidBatch) Error() string {
	return fmt.Sprintf("invalid generation batch: %s", e.Reason)
}

// Generator produces a validated batch of MCQs for a (topic, difficulty) pair.
// It is stateless; each call makes exactly one provider request with a bounded
// timeout and fails closed on any malformed output. No retries.
type Generator struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

func New(provider llm.Provider, timeout time.Duration, logger *slog.Logger) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Generate requests count questions and validates the full batch. Any
// violation of the response contract yields an error and no questions.
func (g *Generator) Generate(ctx context.Context, topic string, difficulty models.DifficultyLevel, count int) ([]GeneratedQuestion, error) {
	prompt := buildPrompt(topic, difficulty, count)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		g.logger.Error("Question generation call failed",
			"model", g.provider.ModelID(),
			"error", err)
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	questions, err := parseBatch(raw, count)
	if err != nil {
		g.logger.Error("Question generation returned malformed batch",
			"model", g.provider.ModelID(),
			"error", err)
		return nil, err
	}

	return questions, nil
}

// parseBatch enforces the strict response contract: a JSON array (after
// stripping any code fences) of exactly count objects, each with a non-empty
// question, four options and a single answer letter A-D.
func parseBatch(raw string, count int) ([]GeneratedQuestion, error) {
	cleaned := stripCodeFences(raw)

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, &ErrInvalidBatch{Reason: fmt.Sprintf("response is not a JSON array: %v", err)}
	}

	if len(questions) != count {
		return nil, &ErrInvalidBatch{Reason: fmt.Sprintf("expected %d questions, got %d", count, len(questions))}
	}

	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, &ErrInvalidBatch{Reason: fmt.Sprintf("question %d has empty text", i)}
		}
		if len(q.Options) != OptionCount {
			return nil, &ErrInvalidBatch{Reason: fmt.Sprintf("question %d has %d options, want %d", i, len(q.Options), OptionCount)}
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return nil, &ErrInvalidBatch{Reason: fmt.Sprintf("question %d option %d is empty", i, j)}
			}
		}
		if len(q.Answer) != 1 || q.Answer[0] < 'A' || q.Answer[0] > 'D' {
			return nil, &ErrInvalidBatch{Reason: fmt.Sprintf("question %d has invalid answer key %q", i, q.Answer)}
		}
	}

	return questions, nil
}

// stripCodeFences removes markdown fences models sometimes wrap JSON in.
func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
