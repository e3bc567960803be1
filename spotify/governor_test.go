package spotify

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"
)

// fixedNow pins the governor clock for deterministic hold math.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGovernor_NoHoldByDefault(t *testing.T) {
	g := NewGovernor()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	snap := g.Snapshot()
	if snap.Holding {
		t.Error("fresh governor should not be holding")
	}
	if snap.Remaining != -1 {
		t.Errorf("Remaining = %d, want -1 (unknown)", snap.Remaining)
	}
}

func TestGovernor_Observe429SetsHold(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g := NewGovernor()
	g.now = fixedNow(t0)

	h := http.Header{}
	h.Set("Retry-After", "3")
	g.Observe(429, h)

	snap := g.Snapshot()
	if !snap.Holding {
		t.Fatal("expected governor to be holding after 429")
	}
	want := 3*time.Second + HoldMargin
	if snap.HoldRemaining != want {
		t.Errorf("HoldRemaining = %v, want %v", snap.HoldRemaining, want)
	}
}

func TestGovernor_429WithoutRetryAfter(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g := NewGovernor()
	g.now = fixedNow(t0)

	g.Observe(429, http.Header{})

	snap := g.Snapshot()
	if !snap.Holding {
		t.Fatal("expected governor to be holding")
	}
	want := DefaultHold + HoldMargin
	if snap.HoldRemaining != want {
		t.Errorf("HoldRemaining = %v, want %v", snap.HoldRemaining, want)
	}
}

func TestGovernor_HoldOnlyExtends(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g := NewGovernor()
	g.now = fixedNow(t0)

	h := http.Header{}
	h.Set("Retry-After", "10")
	g.Observe(429, h)

	// A stale 429 with a shorter hold must not shorten the active one.
	h.Set("Retry-After", "1")
	g.Observe(429, h)

	snap := g.Snapshot()
	want := 10*time.Second + HoldMargin
	if snap.HoldRemaining != want {
		t.Errorf("HoldRemaining = %v, want %v (shorter hold must not win)", snap.HoldRemaining, want)
	}
}

func TestGovernor_HoldExpires(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g := NewGovernor()
	g.now = fixedNow(t0)

	h := http.Header{}
	h.Set("Retry-After", "3")
	g.Observe(429, h)

	// Advance the clock past the hold.
	g.now = fixedNow(t0.Add(5 * time.Second))

	snap := g.Snapshot()
	if snap.Holding {
		t.Errorf("hold should have expired, got HoldRemaining=%v", snap.HoldRemaining)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("Wait after hold expiry failed: %v", err)
	}
}

func TestGovernor_WaitCancellation(t *testing.T) {
	g := NewGovernor()

	h := http.Header{}
	h.Set("Retry-After", "60")
	g.Observe(429, h)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded during hold, got %v", err)
	}
}

func TestGovernor_BudgetHeaders(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g := NewGovernor()
	g.now = fixedNow(t0)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "7")
	g.Observe(200, h)

	snap := g.Snapshot()
	if snap.Remaining != 7 {
		t.Errorf("Remaining = %d, want 7", snap.Remaining)
	}
	if snap.Holding {
		t.Error("budget headers alone should not hold")
	}
}

func TestGovernor_ExhaustedBudgetWaitsForReset(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g := NewGovernor()
	g.now = fixedNow(t0)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(t0.Add(30*time.Second).Unix(), 10))
	g.Observe(200, h)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected Wait to block on exhausted budget, got %v", err)
	}

	// After the reset instant, requests flow again.
	g.now = fixedNow(t0.Add(31 * time.Second))
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := g.Wait(ctx2); err != nil {
		t.Fatalf("Wait after reset failed: %v", err)
	}
}

func TestGovernor_WaitSpendsBudget(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	g := NewGovernor()
	g.now = fixedNow(t0)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "1")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(t0.Add(time.Minute).Unix(), 10))
	g.Observe(200, h)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}
	if got := g.Snapshot().Remaining; got != 0 {
		t.Fatalf("Remaining after dispatch = %d, want 0", got)
	}

	// The single budget unit is spent; the next caller blocks until the
	// reset instant even though no new response has been observed.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if err := g.Wait(ctx2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected second Wait to block on spent budget, got %v", err)
	}

	// Fresh headers restore the budget and admission resumes.
	h2 := http.Header{}
	h2.Set("X-RateLimit-Remaining", "5")
	g.Observe(200, h2)
	ctx3, cancel3 := context.WithTimeout(context.Background(), time.Second)
	defer cancel3()
	if err := g.Wait(ctx3); err != nil {
		t.Fatalf("Wait after budget refresh failed: %v", err)
	}
}

func TestGovernor_BadHeaderValuesIgnored(t *testing.T) {
	g := NewGovernor()

	h := http.Header{}
	h.Set("Retry-After", "soon")
	g.Observe(429, h)

	// Unparseable Retry-After falls back to the default hold.
	snap := g.Snapshot()
	if !snap.Holding {
		t.Fatal("expected default hold for unparseable Retry-After")
	}

	h2 := http.Header{}
	h2.Set("X-RateLimit-Remaining", "lots")
	g.Observe(200, h2)
	if got := g.Snapshot().Remaining; got != -1 {
		t.Errorf("Remaining = %d, want -1 (bad value ignored)", got)
	}
}
