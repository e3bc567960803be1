package types

import "time"

// DigestKind discriminates the two batch jobs.
type DigestKind string

const (
	DigestWrapped      DigestKind = "wrapped"
	DigestReleaseRadar DigestKind = "release_radar"
)

// UserFailure records one user's failure without aborting the batch run.
type UserFailure struct {
	Email string `json:"email"`
	// Op is the step that failed (e.g. "authenticate", "fetch_top_tracks").
	Op    string `json:"op"`
	Error string `json:"error"`
}

// RunReport is the outcome of one digest invocation. Per-user failures are
// collected here rather than propagated; a run "succeeds" as long as it
// completes, even with individual user failures.
type RunReport struct {
	RunID     string        `json:"runId"`
	Kind      DigestKind    `json:"kind"`
	PeriodKey string        `json:"periodKey"`
	Succeeded []string      `json:"succeeded"`
	Failures  []UserFailure `json:"failures"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// UsersProcessed is the total number of users attempted.
func (r *RunReport) UsersProcessed() int {
	return len(r.Succeeded) + len(r.Failures)
}
