package otp

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/placement-portal/daily-quiz-service/internal/cache"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	helper := cache.NewCacheHelper(client, cache.OTPCacheConfig.Prefix)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewStore(helper, 5*time.Minute, logger), mr
}

func TestIssueAndVerify(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "Student@Example.COM")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	// Case-insensitive address match.
	if err := store.Verify(ctx, "student@example.com", code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// One-shot: a second verification of the same code must fail.
	if err := store.Verify(ctx, "student@example.com", code); !errors.Is(err, ErrNotRequested) {
		t.Fatalf("expected ErrNotRequested on replay, got %v", err)
	}
}

func TestVerify_NeverRequested(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Verify(context.Background(), "nobody@example.com", "123456")
	if !errors.Is(err, ErrNotRequested) {
		t.Fatalf("expected ErrNotRequested, got %v", err)
	}
}

func TestVerify_WrongCodeAttempts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "student@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// First two wrong guesses report a mismatch.
	for i := 0; i < MaxAttempts-1; i++ {
		if err := store.Verify(ctx, "student@example.com", wrong); !errors.Is(err, ErrMismatch) {
			t.Fatalf("guess %d: expected ErrMismatch, got %v", i+1, err)
		}
	}

	// The final guess exhausts the budget and discards the code.
	if err := store.Verify(ctx, "student@example.com", wrong); !errors.Is(err, ErrTooMany) {
		t.Fatalf("expected ErrTooMany, got %v", err)
	}
	if err := store.Verify(ctx, "student@example.com", code); !errors.Is(err, ErrNotRequested) {
		t.Fatalf("expected code discarded after exhaustion, got %v", err)
	}
}

func TestVerify_ConcurrentWrongGuessesStayWithinBudget(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "student@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	const guessers = 10
	results := make(chan error, guessers)
	var wg sync.WaitGroup
	for i := 0; i < guessers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Verify(ctx, "student@example.com", wrong)
		}()
	}
	wg.Wait()
	close(results)

	mismatches := 0
	for err := range results {
		if errors.Is(err, ErrMismatch) {
			mismatches++
		}
	}
	if mismatches > MaxAttempts-1 {
		t.Fatalf("%d guesses reported a mismatch, budget is %d", mismatches, MaxAttempts-1)
	}

	// The code is gone either way; even the right guess is now rejected.
	if err := store.Verify(ctx, "student@example.com", code); err == nil {
		t.Fatal("code accepted after attempt budget was exhausted")
	}
}

func TestVerify_WrongGuessDoesNotExtendExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "student@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mr.FastForward(3 * time.Minute)
	if err := store.Verify(ctx, "student@example.com", "999999"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}

	// Past the original 5 minute lifetime; the wrong guess must not have
	// restarted the clock.
	mr.FastForward(2*time.Minute + 30*time.Second)
	if err := store.Verify(ctx, "student@example.com", code); !errors.Is(err, ErrNotRequested) {
		t.Fatalf("expected ErrNotRequested after original expiry, got %v", err)
	}
}

func TestIssue_ResetsAttemptBudget(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Issue(ctx, "student@example.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	for i := 0; i < MaxAttempts-1; i++ {
		if err := store.Verify(ctx, "student@example.com", "999999"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("guess %d: expected ErrMismatch, got %v", i+1, err)
		}
	}

	code, err := store.Issue(ctx, "student@example.com")
	if err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	// The fresh code carries a fresh budget: earlier guesses do not count.
	for i := 0; i < MaxAttempts-1; i++ {
		if err := store.Verify(ctx, "student@example.com", "999999"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("guess %d after reissue: expected ErrMismatch, got %v", i+1, err)
		}
	}
	if err := store.Verify(ctx, "student@example.com", code); err != nil {
		t.Fatalf("Verify failed after reissue: %v", err)
	}
}

func TestVerify_Expiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "student@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mr.FastForward(6 * time.Minute)

	if err := store.Verify(ctx, "student@example.com", code); !errors.Is(err, ErrNotRequested) {
		t.Fatalf("expected ErrNotRequested after expiry, got %v", err)
	}
}

func TestIssue_ReplacesOutstandingCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Issue(ctx, "student@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	second, err := store.Issue(ctx, "student@example.com")
	if err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	if err := store.Verify(ctx, "student@example.com", first); err == nil && first != second {
		t.Fatal("stale code accepted after reissue")
	}
}
