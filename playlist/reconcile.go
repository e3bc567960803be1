// Package playlist implements idempotent playlist reconciliation.
//
// A reconcile pass reads the playlist's current tracks, diffs them
// against the desired target, and applies only the difference. Running
// the same reconcile twice is a no-op the second time.
package playlist

import (
	"context"
	"fmt"
)

// Writer is the subset of the API client the reconciler needs.
type Writer interface {
	// PlaylistTracks returns the playlist's current track ids in order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]string, error)
	// AddPlaylistTracks appends tracks, batching internally.
	AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
	// RemovePlaylistTracks removes tracks, batching internally.
	RemovePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// Plan is the computed difference between a playlist's current state
// and its target. Apply executes removes before adds so a full rebuild
// never exceeds the playlist's target size.
type Plan struct {
	PlaylistID string   `json:"playlistId"`
	Add        []string `json:"add"`
	Remove     []string `json:"remove"`
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Add) == 0 && len(p.Remove) == 0
}

// Diff computes the plan to bring current to target.
//
// Tracks in target but not current are added, in target order, once
// each. When removeMissing is set, tracks in current but not target are
// removed (full rebuild); otherwise the reconcile is additive only
// (weekly accumulation).
func Diff(playlistID string, target, current []string, removeMissing bool) Plan {
	have := make(map[string]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[string]bool, len(target))

	plan := Plan{PlaylistID: playlistID}
	for _, id := range target {
		if want[id] {
			continue
		}
		want[id] = true
		if !have[id] {
			plan.Add = append(plan.Add, id)
		}
	}

	if removeMissing {
		removed := make(map[string]bool)
		for _, id := range current {
			if !want[id] && !removed[id] {
				removed[id] = true
				plan.Remove = append(plan.Remove, id)
			}
		}
	}
	return plan
}

// PartialError reports a plan that was applied incompletely. Applied
// counts the operations that succeeded before the failure.
type PartialError struct {
	Op      string
	Applied int
	Total   int
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("playlist %s: applied %d of %d changes: %v", e.Op, e.Applied, e.Total, e.Err)
}

// Unwrap returns the underlying error.
func (e *PartialError) Unwrap() error {
	return e.Err
}

// Apply executes the plan. Removes run before adds. A failure mid-plan
// returns a PartialError; the playlist is left in whatever intermediate
// state was reached, and a re-run converges it.
func Apply(ctx context.Context, w Writer, plan Plan) error {
	total := len(plan.Add) + len(plan.Remove)
	if total == 0 {
		return nil
	}

	if len(plan.Remove) > 0 {
		if err := w.RemovePlaylistTracks(ctx, plan.PlaylistID, plan.Remove); err != nil {
			return &PartialError{Op: "remove", Applied: 0, Total: total, Err: err}
		}
	}
	if len(plan.Add) > 0 {
		if err := w.AddPlaylistTracks(ctx, plan.PlaylistID, plan.Add); err != nil {
			return &PartialError{Op: "add", Applied: len(plan.Remove), Total: total, Err: err}
		}
	}
	return nil
}

// Reconcile reads the playlist, diffs against target, and applies the
// plan. Returns the plan that was applied (possibly empty).
func Reconcile(ctx context.Context, w Writer, playlistID string, target []string, removeMissing bool) (Plan, error) {
	current, err := w.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return Plan{}, fmt.Errorf("read playlist %s: %w", playlistID, err)
	}

	plan := Diff(playlistID, target, current, removeMissing)
	if err := Apply(ctx, w, plan); err != nil {
		return plan, err
	}
	return plan, nil
}
