package digest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xomify/xomify/types"
)

// userError carries the failing step alongside the error so reports can
// say where a user's processing stopped.
type userError struct {
	op  string
	err error
}

func (e *userError) Error() string { return e.op + ": " + e.err.Error() }

func (e *userError) Unwrap() error { return e.err }

func failStep(op string, err error) error {
	return &userError{op: op, err: err}
}

// runUsers processes users with a bounded worker pool. Each user's
// outcome lands in its input position, so report ordering is
// deterministic regardless of completion order. One user's failure
// never stops the others; cancellation stops issuing new users but
// lets in-flight ones finish.
func runUsers(ctx context.Context, users []types.User, parallel int, proc func(ctx context.Context, user types.User) error) []error {
	results := make([]error, len(users))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup

	for i, user := range users {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// Mark everything not yet started as canceled.
			for j := i; j < len(users); j++ {
				results[j] = failStep("start", ctx.Err())
			}
			wg.Wait()
			return results
		}

		wg.Add(1)
		go func(idx int, u types.User) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = proc(ctx, u)
		}(i, user)
	}

	wg.Wait()
	return results
}

// buildReport assembles the run report from positional outcomes.
func buildReport(runID string, kind types.DigestKind, periodKey string, users []types.User, outcomes []error, startedAt time.Time, finishedAt time.Time) *types.RunReport {
	report := &types.RunReport{
		RunID:     runID,
		Kind:      kind,
		PeriodKey: periodKey,
		StartedAt: startedAt,
		Duration:  finishedAt.Sub(startedAt),
	}
	for i, err := range outcomes {
		if err == nil {
			report.Succeeded = append(report.Succeeded, users[i].Email)
			continue
		}
		failure := types.UserFailure{Email: users[i].Email, Error: err.Error()}
		var ue *userError
		if errors.As(err, &ue) {
			failure.Op = ue.op
		}
		report.Failures = append(report.Failures, failure)
	}
	return report
}
