package spotify

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// HoldMargin is added to upstream Retry-After values so that a request
// issued immediately after the hold expires does not race the limiter
// window on the server side.
const HoldMargin = time.Second

// DefaultHold is used when a 429 arrives without a Retry-After header.
const DefaultHold = time.Second

// Governor serializes rate-limit state across all in-flight requests.
// When any response observes a 429, every subsequent request waits out
// the hold before being issued. The governor is shared by all users in
// a digest run; the upstream limit is per app, not per user.
//
// The zero value is not usable; construct with NewGovernor.
type Governor struct {
	mu sync.Mutex

	// holdUntil is the earliest instant a request may be issued.
	holdUntil time.Time

	// remaining and resetAt mirror the most recent budget headers, when
	// the upstream provides them. remaining is -1 while unknown.
	remaining int
	resetAt   time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewGovernor creates a governor with no active hold.
func NewGovernor() *Governor {
	return &Governor{
		remaining: -1,
		now:       time.Now,
	}
}

// Wait blocks until the governor permits a request or ctx is done.
// Returns ctx.Err() on cancellation, nil when clear to proceed.
func (g *Governor) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := g.now()
		wait := g.holdUntil.Sub(now)
		if wait <= 0 && g.remaining == 0 && g.resetAt.After(now) {
			wait = g.resetAt.Sub(now)
		}
		if wait <= 0 {
			// Spend one unit of the learned budget before dispatch, so
			// concurrent callers cannot all be admitted on the same
			// observed value. Fresh headers restore the real count.
			if g.remaining > 0 {
				g.remaining--
			}
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		// Re-check: another response may have extended the hold while
		// this caller slept.
	}
}

// Observe updates governor state from a response's status and headers.
// Called for every response, success or failure.
func (g *Governor) Observe(status int, headers http.Header) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if status == http.StatusTooManyRequests {
		hold := DefaultHold
		if s := headers.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
				hold = time.Duration(secs) * time.Second
			}
		}
		until := now.Add(hold + HoldMargin)
		// Holds only ever extend; a stale response must not shorten one.
		if until.After(g.holdUntil) {
			g.holdUntil = until
		}
		return
	}

	if s := headers.Get("X-RateLimit-Remaining"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			g.remaining = n
		}
	}
	if s := headers.Get("X-RateLimit-Reset"); s != "" {
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil && epoch > 0 {
			g.resetAt = time.Unix(epoch, 0)
		}
	}
}

// GovernorSnapshot is a point-in-time view of governor state.
type GovernorSnapshot struct {
	// Holding reports whether a 429 hold is currently active.
	Holding bool `json:"holding"`
	// HoldRemaining is the time left on the active hold, zero if none.
	HoldRemaining time.Duration `json:"holdRemaining"`
	// Remaining is the last observed request budget, -1 if unknown.
	Remaining int `json:"remaining"`
}

// Snapshot returns the current governor state.
// Safe to call concurrently with Wait and Observe.
func (g *Governor) Snapshot() GovernorSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	snap := GovernorSnapshot{Remaining: g.remaining}
	if g.holdUntil.After(now) {
		snap.Holding = true
		snap.HoldRemaining = g.holdUntil.Sub(now)
	}
	return snap
}
