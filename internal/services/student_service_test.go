package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/cache"
	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
)

func newStudentFixture(t *testing.T) (*stubRepository, *utils.FixedClock, StudentService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newStubRepository()
	clock := &utils.FixedClock{Date: time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)}
	svc := NewStudentService(repo, logger, clock, cache.NewCacheHelper(nil, cache.LeaderboardCacheConfig.Prefix))
	return repo, clock, svc
}

func seedSubmittedAttempt(t *testing.T, repo *stubRepository, clock utils.Clock, studentID, name string, year, score, seconds int) {
	t.Helper()
	ctx := context.Background()

	if err := repo.User().Create(ctx, nil, &models.Student{
		UID:   studentID,
		Email: studentID + "@example.edu",
		Name:  name,
		Year:  year,
		Role:  models.RoleStudent,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	err := repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := repo.Attempt().TryBegin(ctx, tx, studentID, clock.Today(), models.TrackPlacement); err != nil {
			return err
		}
		attempt, err := repo.Attempt().GetForUpdate(ctx, tx, studentID, clock.Today(), models.TrackPlacement)
		if err != nil {
			return err
		}
		return repo.Attempt().MarkSubmitted(ctx, tx, attempt, score, 10, seconds)
	})
	if err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
}

func TestTodayResult(t *testing.T) {
	repo, clock, svc := newStudentFixture(t)
	identity := studentIdentity("s1")

	before, err := svc.TodayResult(context.Background(), identity, models.TrackPlacement)
	if err != nil {
		t.Fatalf("TodayResult failed: %v", err)
	}
	if before.Attempted {
		t.Fatal("reported attempted before any begin")
	}

	seedSubmittedAttempt(t, repo, clock, "s1", "One", 3, 7, 240)

	after, err := svc.TodayResult(context.Background(), identity, models.TrackPlacement)
	if err != nil {
		t.Fatalf("TodayResult failed: %v", err)
	}
	if !after.Attempted || !after.Submitted {
		t.Fatalf("attempted=%v submitted=%v", after.Attempted, after.Submitted)
	}
	if after.Score != 7 || after.Total != 10 || after.TimeTakenSeconds != 240 {
		t.Errorf("result = %d/%d in %ds", after.Score, after.Total, after.TimeTakenSeconds)
	}
}

func TestLeaderboard_RanksByScoreThenTime(t *testing.T) {
	repo, clock, svc := newStudentFixture(t)

	seedSubmittedAttempt(t, repo, clock, "a", "Slow High", 3, 9, 400)
	seedSubmittedAttempt(t, repo, clock, "b", "Fast High", 3, 9, 200)
	seedSubmittedAttempt(t, repo, clock, "c", "Low", 3, 4, 100)
	seedSubmittedAttempt(t, repo, clock, "d", "Other Year", 2, 10, 50)

	resp, err := svc.Leaderboard(context.Background(), models.TrackPlacement, 3)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}

	if len(resp.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(resp.Entries))
	}
	wantOrder := []string{"b", "a", "c"}
	for i, want := range wantOrder {
		if resp.Entries[i].StudentID != want {
			t.Errorf("rank %d = %s, want %s", i+1, resp.Entries[i].StudentID, want)
		}
		if resp.Entries[i].Rank != i+1 {
			t.Errorf("entry %d rank = %d", i, resp.Entries[i].Rank)
		}
	}
}

func TestMarksHistory(t *testing.T) {
	repo, clock, svc := newStudentFixture(t)
	seedSubmittedAttempt(t, repo, clock, "s1", "One", 3, 8, 300)

	resp, err := svc.MarksHistory(context.Background(), studentIdentity("s1"), models.TrackPlacement, 2025, time.June)
	if err != nil {
		t.Fatalf("MarksHistory failed: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(resp.Entries))
	}
	if resp.Entries[0].Score != 8 || resp.Entries[0].Status != "submitted" {
		t.Errorf("entry = %d %s", resp.Entries[0].Score, resp.Entries[0].Status)
	}

	empty, err := svc.MarksHistory(context.Background(), studentIdentity("s1"), models.TrackPlacement, 2025, time.May)
	if err != nil {
		t.Fatalf("MarksHistory failed: %v", err)
	}
	if len(empty.Entries) != 0 {
		t.Errorf("got %d entries for an empty month", len(empty.Entries))
	}
}
