package digest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xomify/xomify/types"
)

func testUsers(n int) []types.User {
	users := make([]types.User, n)
	for i := range users {
		users[i] = types.User{Email: string(rune('a'+i)) + "@example.com"}
	}
	return users
}

func TestRunUsers_PositionalOutcomes(t *testing.T) {
	users := testUsers(4)
	wantErr := errors.New("boom")

	results := runUsers(context.Background(), users, 2, func(ctx context.Context, u types.User) error {
		if u.Email == users[2].Email {
			return wantErr
		}
		return nil
	})

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, err := range results {
		if i == 2 {
			if !errors.Is(err, wantErr) {
				t.Errorf("position 2: expected failure, got %v", err)
			}
			continue
		}
		if err != nil {
			t.Errorf("position %d: unexpected error %v", i, err)
		}
	}
}

func TestRunUsers_BoundedConcurrency(t *testing.T) {
	var active, peak atomic.Int64
	var mu sync.Mutex

	runUsers(context.Background(), testUsers(8), 3, func(ctx context.Context, u types.User) error {
		n := active.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return nil
	})

	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent workers, saw %d", peak.Load())
	}
}

func TestRunUsers_CancellationMarksUnstarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// The single worker slot stays held while cancellation propagates,
	// so the dispatcher sees the canceled context before the next user
	// can start.
	results := runUsers(ctx, testUsers(5), 1, func(ctx context.Context, u types.User) error {
		cancel()
		time.Sleep(50 * time.Millisecond)
		return ctx.Err()
	})

	for i, err := range results {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("position %d: expected cancellation, got %v", i, err)
		}
	}
	marked := 0
	for _, err := range results {
		var ue *userError
		if errors.As(err, &ue) && ue.op == "start" {
			marked++
		}
	}
	if marked != 4 {
		t.Errorf("expected 4 unstarted users marked at the start step, got %d", marked)
	}
}

func TestBuildReport(t *testing.T) {
	users := testUsers(3)
	startedAt := time.Date(2026, time.August, 1, 6, 0, 0, 0, time.UTC)
	finishedAt := startedAt.Add(42 * time.Second)

	outcomes := []error{
		nil,
		failStep("fetch_top_tracks", errors.New("upstream unavailable")),
		nil,
	}

	report := buildReport("run-1", types.DigestWrapped, "2026-07", users, outcomes, startedAt, finishedAt)

	if report.RunID != "run-1" || report.Kind != types.DigestWrapped || report.PeriodKey != "2026-07" {
		t.Errorf("report header mismatch: %+v", report)
	}
	if len(report.Succeeded) != 2 {
		t.Errorf("expected 2 successes, got %v", report.Succeeded)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %v", report.Failures)
	}
	if report.Failures[0].Email != users[1].Email {
		t.Errorf("failure attributed to %q, want %q", report.Failures[0].Email, users[1].Email)
	}
	if report.Failures[0].Op != "fetch_top_tracks" {
		t.Errorf("failure op = %q, want fetch_top_tracks", report.Failures[0].Op)
	}
	if report.Duration != 42*time.Second {
		t.Errorf("duration = %s", report.Duration)
	}
}
