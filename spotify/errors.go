// Package spotify implements a rate-governed client for the upstream
// web API: token refresh, retrying request execution, pagination, and
// the endpoint operations the digests need.
//
// This file defines sentinel errors and the classified APIError wrapper.
// Callers use errors.Is/errors.As for typed assertions rather than
// string matching.
package spotify

import (
	"errors"
	"fmt"
)

// Sentinel errors for API failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrTransient indicates a retriable failure (5xx, network error).
	ErrTransient = errors.New("transient error")

	// ErrPermanent indicates a non-retriable failure (4xx other than 429).
	ErrPermanent = errors.New("permanent error")

	// ErrRateLimited indicates the upstream returned 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformed indicates a 2xx response whose body could not be decoded.
	ErrMalformed = errors.New("malformed response")

	// ErrAuth indicates the token refresh grant was rejected.
	ErrAuth = errors.New("authentication failed")
)

// APIError wraps an underlying error with request classification.
// It preserves the original error in the chain for inspection via errors.As.
type APIError struct {
	// Kind is the sentinel error for classification (e.g., ErrTransient).
	Kind error
	// Op is the client operation that failed (e.g., "top_tracks").
	Op string
	// Endpoint is the request path involved, if any.
	Endpoint string
	// Status is the HTTP status code, zero for network-level failures.
	Status int
	// Err is the underlying error.
	Err error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v: %v", e.Op, e.Endpoint, e.Status, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Endpoint, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *APIError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// newAPIError creates a classified API error.
func newAPIError(kind error, op, endpoint string, status int, err error) *APIError {
	return &APIError{
		Kind:     kind,
		Op:       op,
		Endpoint: endpoint,
		Status:   status,
		Err:      err,
	}
}

// classifyStatus maps an HTTP status code to a sentinel kind.
// Statuses below 400 never reach classification.
func classifyStatus(status int) error {
	switch {
	case status == 429:
		return ErrRateLimited
	case status == 401 || status == 403:
		return ErrAuth
	case status >= 400 && status < 500:
		return ErrPermanent
	default:
		return ErrTransient
	}
}

// Retriable reports whether a request that failed with err may be retried.
// Rate-limited requests are retriable after the governor's hold expires.
func Retriable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}
