// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single digest run. It is a
// leaf package with no internal dependencies. Upstream request counters
// are recorded live by the API client; per-user outcomes are recorded by
// the orchestrator as users finish.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Per-user outcomes
	UsersStarted   int64
	UsersSucceeded int64
	UsersFailed    int64

	// Upstream requests
	RequestsTotal   int64
	RateLimitHits   int64
	RequestFailures int64

	// Playlist mutations (per-track)
	TracksAdded   int64
	TracksRemoved int64

	// Store
	StoreWriteSuccess int64
	StoreWriteFailure int64

	// Dimensions (informational, set at construction)
	Kind           string
	StorageBackend string
	RunID          string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	usersStarted   int64
	usersSucceeded int64
	usersFailed    int64

	requestsTotal   int64
	rateLimitHits   int64
	requestFailures int64

	tracksAdded   int64
	tracksRemoved int64

	storeWriteSuccess int64
	storeWriteFailure int64

	kind           string
	storageBackend string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(kind, storageBackend, runID string) *Collector {
	return &Collector{
		kind:           kind,
		storageBackend: storageBackend,
		runID:          runID,
	}
}

// --- Per-user outcomes ---

// IncUserStarted records a user entering processing.
func (c *Collector) IncUserStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.usersStarted++
	c.mu.Unlock()
}

// IncUserSucceeded records a user completing successfully.
func (c *Collector) IncUserSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.usersSucceeded++
	c.mu.Unlock()
}

// IncUserFailed records a user whose processing failed.
func (c *Collector) IncUserFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.usersFailed++
	c.mu.Unlock()
}

// --- Upstream requests ---

// RecordRequest records one upstream HTTP exchange by status code.
// 429s count as both a request and a rate limit hit; other non-2xx
// statuses count as request failures.
func (c *Collector) RecordRequest(status int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requestsTotal++
	switch {
	case status == 429:
		c.rateLimitHits++
	case status < 200 || status >= 300:
		c.requestFailures++
	}
	c.mu.Unlock()
}

// --- Playlist mutations ---

// AddTracks records n tracks added to a playlist.
func (c *Collector) AddTracks(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tracksAdded += int64(n)
	c.mu.Unlock()
}

// RemoveTracks records n tracks removed from a playlist.
func (c *Collector) RemoveTracks(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tracksRemoved += int64(n)
	c.mu.Unlock()
}

// --- Store ---
// Store counters are per-call, not per-record. A single PutWrapped call
// counts as 1 success regardless of record size.

// IncStoreWriteSuccess records a successful store write (per-call).
func (c *Collector) IncStoreWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteSuccess++
	c.mu.Unlock()
}

// IncStoreWriteFailure records a failed store write (per-call).
func (c *Collector) IncStoreWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		UsersStarted:   c.usersStarted,
		UsersSucceeded: c.usersSucceeded,
		UsersFailed:    c.usersFailed,

		RequestsTotal:   c.requestsTotal,
		RateLimitHits:   c.rateLimitHits,
		RequestFailures: c.requestFailures,

		TracksAdded:   c.tracksAdded,
		TracksRemoved: c.tracksRemoved,

		StoreWriteSuccess: c.storeWriteSuccess,
		StoreWriteFailure: c.storeWriteFailure,

		Kind:           c.kind,
		StorageBackend: c.storageBackend,
		RunID:          c.runID,
	}
}
