// Package adapter defines the completion-notification boundary.
//
// Adapters publish digest completion events to downstream systems.
// The CLI owns adapter lifecycle; users provide configuration only.
package adapter

import "context"

// DigestCompletedEvent is the payload published when a digest run
// finishes.
type DigestCompletedEvent struct {
	EventType string `json:"event_type"` // always "digest_completed"
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"` // wrapped or release_radar
	PeriodKey string `json:"period_key"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Timestamp string `json:"timestamp"` // ISO 8601
	DurationMs int64 `json:"duration_ms"`
}

// EventTypeDigestCompleted is the fixed event_type value.
const EventTypeDigestCompleted = "digest_completed"

// Adapter publishes digest completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *DigestCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
