package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/placement-portal/daily-quiz-service/internal/events"
	"github.com/placement-portal/daily-quiz-service/internal/llm"
	"github.com/placement-portal/daily-quiz-service/internal/models"
)

// beginForScoring claims today's quiz for the student and returns the served
// payload.
func beginForScoring(t *testing.T, fx *quizFixture, identity Identity) []QuestionPayload {
	t.Helper()

	fx.provider.AddResponse(llm.MockResponse{Text: validBatchJSON(QuizBatchSize)})
	resp, err := fx.quiz.BeginDaily(context.Background(), identity, models.TrackPlacement)
	if err != nil {
		t.Fatalf("BeginDaily failed: %v", err)
	}
	if resp.Attempted || len(resp.Questions) != QuizBatchSize {
		t.Fatalf("unexpected begin response: attempted=%v questions=%d", resp.Attempted, len(resp.Questions))
	}
	return resp.Questions
}

func TestSubmit_ScoresExactMatches(t *testing.T) {
	fx := newQuizFixture(t)
	identity := studentIdentity("s1")
	questions := beginForScoring(t, fx, identity)

	// 6 correct (option B), 3 wrong, 1 omitted.
	var answers []SubmittedAnswer
	for i, q := range questions {
		switch {
		case i < 6:
			answers = append(answers, SubmittedAnswer{QuestionID: q.ID, Selected: q.Options[1]})
		case i < 9:
			answers = append(answers, SubmittedAnswer{QuestionID: q.ID, Selected: q.Options[0]})
		}
	}

	resp, err := fx.scoring.Submit(context.Background(), identity, models.TrackPlacement, &SubmitQuizRequest{
		Answers:          answers,
		TimeTakenSeconds: 300,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if resp.Score != 6 {
		t.Errorf("score = %d, want 6", resp.Score)
	}
	if resp.Total != QuizBatchSize {
		t.Errorf("total = %d, want %d", resp.Total, QuizBatchSize)
	}

	attempt, err := fx.repo.Attempt().Get(context.Background(), nil, identity.StudentID, fx.clock.Today(), models.TrackPlacement)
	if err != nil {
		t.Fatalf("attempt missing: %v", err)
	}
	if attempt.Status != models.AttemptSubmitted {
		t.Errorf("status = %s, want submitted", attempt.Status)
	}
	if attempt.Score != 6 || attempt.Total != QuizBatchSize || attempt.TimeTakenSeconds != 300 {
		t.Errorf("persisted %d/%d in %ds", attempt.Score, attempt.Total, attempt.TimeTakenSeconds)
	}

	rows := fx.repo.questionRows(identity.StudentID, fx.clock.Today(), models.TrackPlacement)
	answered := 0
	for _, row := range rows {
		if row.StudentAnswer != nil {
			answered++
		}
	}
	if answered != 9 {
		t.Errorf("%d answers recorded, want 9", answered)
	}
}

func TestSubmit_SecondSubmissionRejected(t *testing.T) {
	fx := newQuizFixture(t)
	identity := studentIdentity("s1")
	questions := beginForScoring(t, fx, identity)

	correct := make([]SubmittedAnswer, len(questions))
	for i, q := range questions {
		correct[i] = SubmittedAnswer{QuestionID: q.ID, Selected: q.Options[1]}
	}
	wrong := make([]SubmittedAnswer, len(questions))
	for i, q := range questions {
		wrong[i] = SubmittedAnswer{QuestionID: q.ID, Selected: q.Options[0]}
	}

	first, err := fx.scoring.Submit(context.Background(), identity, models.TrackPlacement, &SubmitQuizRequest{Answers: correct, TimeTakenSeconds: 100})
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if first.Score != QuizBatchSize {
		t.Fatalf("first score = %d", first.Score)
	}

	if _, err := fx.scoring.Submit(context.Background(), identity, models.TrackPlacement, &SubmitQuizRequest{Answers: wrong, TimeTakenSeconds: 50}); !errors.Is(err, ErrQuizClosed) {
		t.Fatalf("second submit err = %v, want ErrQuizClosed", err)
	}

	// The rejected submission changed nothing.
	attempt, _ := fx.repo.Attempt().Get(context.Background(), nil, identity.StudentID, fx.clock.Today(), models.TrackPlacement)
	if attempt.Score != QuizBatchSize || attempt.TimeTakenSeconds != 100 {
		t.Errorf("score mutated by rejected submit: %d in %ds", attempt.Score, attempt.TimeTakenSeconds)
	}
	rows := fx.repo.questionRows(identity.StudentID, fx.clock.Today(), models.TrackPlacement)
	for i, row := range rows {
		if row.StudentAnswer == nil || *row.StudentAnswer != questions[i].Options[1] {
			t.Errorf("row %d answer mutated by rejected submit", i)
		}
	}
}

func TestSubmit_ConcurrentSingleSuccess(t *testing.T) {
	const workers = 50

	fx := newQuizFixture(t)
	identity := studentIdentity("racer")
	questions := beginForScoring(t, fx, identity)

	answers := make([]SubmittedAnswer, len(questions))
	for i, q := range questions {
		answers[i] = SubmittedAnswer{QuestionID: q.ID, Selected: q.Options[1]}
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.scoring.Submit(context.Background(), identity, models.TrackPlacement, &SubmitQuizRequest{Answers: answers, TimeTakenSeconds: 60})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrQuizClosed):
		default:
			t.Fatalf("submit %d unexpected error: %v", i, err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d submits succeeded, want exactly 1", succeeded)
	}
}

func TestSubmit_WithoutBegin(t *testing.T) {
	fx := newQuizFixture(t)

	_, err := fx.scoring.Submit(context.Background(), studentIdentity("s1"), models.TrackPlacement, &SubmitQuizRequest{
		Answers: []SubmittedAnswer{{QuestionID: 1, Selected: "anything"}},
	})
	if !errors.Is(err, ErrQuizClosed) {
		t.Fatalf("err = %v, want ErrQuizClosed", err)
	}
}

func TestSubmit_IgnoresUnknownAndDuplicateIDs(t *testing.T) {
	fx := newQuizFixture(t)
	identity := studentIdentity("s1")
	questions := beginForScoring(t, fx, identity)

	answers := []SubmittedAnswer{
		{QuestionID: questions[0].ID, Selected: questions[0].Options[1]},
		{QuestionID: questions[0].ID, Selected: questions[0].Options[1]}, // duplicate
		{QuestionID: 999999, Selected: "ghost"},                          // unknown id
	}

	resp, err := fx.scoring.Submit(context.Background(), identity, models.TrackPlacement, &SubmitQuizRequest{Answers: answers})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if resp.Score != 1 {
		t.Errorf("score = %d, want 1", resp.Score)
	}
	if resp.Total != QuizBatchSize {
		t.Errorf("total = %d, want %d", resp.Total, QuizBatchSize)
	}
}

func TestSubmit_ValidationRejectsEmptyAnswers(t *testing.T) {
	fx := newQuizFixture(t)
	identity := studentIdentity("s1")
	beginForScoring(t, fx, identity)

	if _, err := fx.scoring.Submit(context.Background(), identity, models.TrackPlacement, &SubmitQuizRequest{}); err == nil {
		t.Fatal("empty submission accepted")
	}

	// Validation failure must not close the attempt.
	attempt, _ := fx.repo.Attempt().Get(context.Background(), nil, identity.StudentID, fx.clock.Today(), models.TrackPlacement)
	if attempt.Status != models.AttemptStarted {
		t.Errorf("status = %s after rejected submission", attempt.Status)
	}
}

func TestSubmit_PublishesEvent(t *testing.T) {
	fx := newQuizFixture(t)
	identity := studentIdentity("s1")
	questions := beginForScoring(t, fx, identity)

	answers := make([]SubmittedAnswer, len(questions))
	for i, q := range questions {
		answers[i] = SubmittedAnswer{QuestionID: q.ID, Selected: q.Options[1]}
	}
	if _, err := fx.scoring.Submit(context.Background(), identity, models.TrackPlacement, &SubmitQuizRequest{Answers: answers, TimeTakenSeconds: 45}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var submitted *events.QuizSubmittedEvent
	for _, e := range fx.publisher.GetPublishedEvents() {
		if e.Type == events.EventQuizSubmitted {
			data := e.Data.(events.QuizSubmittedEvent)
			submitted = &data
		}
	}
	if submitted == nil {
		t.Fatal("no quiz.submitted event published")
	}
	if submitted.Score != QuizBatchSize || submitted.Total != QuizBatchSize || submitted.TimeTakenSeconds != 45 {
		t.Errorf("event payload %d/%d in %ds", submitted.Score, submitted.Total, submitted.TimeTakenSeconds)
	}
}
