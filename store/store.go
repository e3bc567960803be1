// Package store persists user enrollment and digest history.
//
// Two backends exist: DynamoDB for deployments and an in-memory store
// for tests and local runs. Both satisfy the Store interface; callers
// never see backend-specific errors, only classified store errors.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/xomify/xomify/types"
)

// Sentinel errors for store failure classification.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// Error wraps an underlying error with store classification.
// It preserves the original error in the chain for errors.As.
type Error struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Op is the store operation that failed (e.g., "get_user").
	Op string
	// Key identifies the record involved, if any.
	Key string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// newError creates a classified store error.
func newError(kind error, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

// Store is the persistence surface the digests and the HTTP API use.
type Store interface {
	// ListUsers returns all user records, enrolled or not.
	ListUsers(ctx context.Context) ([]types.User, error)
	// GetUser returns the user keyed by email.
	GetUser(ctx context.Context, email string) (types.User, error)
	// PutUser creates or replaces a user record.
	PutUser(ctx context.Context, user types.User) error
	// SetReleaseRadarID writes back the weekly playlist id after first
	// creation, leaving the rest of the record untouched.
	SetReleaseRadarID(ctx context.Context, email, playlistID string) error

	// GetWrapped returns one monthly record.
	GetWrapped(ctx context.Context, email, monthKey string) (types.WrappedRecord, error)
	// PutWrapped creates or replaces a monthly record. One record exists
	// per (email, monthKey).
	PutWrapped(ctx context.Context, rec types.WrappedRecord) error
	// ListWrapped returns a user's monthly records.
	ListWrapped(ctx context.Context, email string) ([]types.WrappedRecord, error)

	// GetReleaseWeek returns one weekly release record.
	GetReleaseWeek(ctx context.Context, email, weekKey string) (types.ReleaseWeekRecord, error)
	// PutReleaseWeek creates or replaces a weekly release record.
	PutReleaseWeek(ctx context.Context, rec types.ReleaseWeekRecord) error
	// ListReleaseWeeks returns a user's weekly records.
	ListReleaseWeeks(ctx context.Context, email string) ([]types.ReleaseWeekRecord, error)
}
