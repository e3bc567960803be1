package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/xomify/xomify/types"
)

// Memory is an in-memory Store for tests and local runs.
// Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]types.User
	wrapped  map[string]types.WrappedRecord     // email + "#" + monthKey
	releases map[string]types.ReleaseWeekRecord // email + "#" + weekKey
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]types.User),
		wrapped:  make(map[string]types.WrappedRecord),
		releases: make(map[string]types.ReleaseWeekRecord),
	}
}

func (m *Memory) ListUsers(_ context.Context) ([]types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]types.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	// Map order is random; sort for deterministic batch processing.
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *Memory) GetUser(_ context.Context, email string) (types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return types.User{}, newError(ErrNotFound, "get_user", email, errors.New("no such user"))
	}
	return u, nil
}

func (m *Memory) PutUser(_ context.Context, user types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[user.Email] = user
	return nil
}

func (m *Memory) SetReleaseRadarID(_ context.Context, email, playlistID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[email]
	if !ok {
		return newError(ErrNotFound, "set_release_radar_id", email, errors.New("no such user"))
	}
	u.ReleaseRadarID = playlistID
	m.users[email] = u
	return nil
}

func (m *Memory) GetWrapped(_ context.Context, email, monthKey string) (types.WrappedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.wrapped[email+"#"+monthKey]
	if !ok {
		return types.WrappedRecord{}, newError(ErrNotFound, "get_wrapped", email+"/"+monthKey, errors.New("no such record"))
	}
	return rec, nil
}

func (m *Memory) PutWrapped(_ context.Context, rec types.WrappedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wrapped[rec.Email+"#"+rec.MonthKey] = rec
	return nil
}

func (m *Memory) ListWrapped(_ context.Context, email string) ([]types.WrappedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []types.WrappedRecord
	for _, rec := range m.wrapped {
		if rec.Email == email {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].MonthKey < recs[j].MonthKey })
	return recs, nil
}

func (m *Memory) GetReleaseWeek(_ context.Context, email, weekKey string) (types.ReleaseWeekRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.releases[email+"#"+weekKey]
	if !ok {
		return types.ReleaseWeekRecord{}, newError(ErrNotFound, "get_release_week", email+"/"+weekKey, errors.New("no such record"))
	}
	return rec, nil
}

func (m *Memory) PutReleaseWeek(_ context.Context, rec types.ReleaseWeekRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releases[rec.Email+"#"+rec.WeekKey] = rec
	return nil
}

func (m *Memory) ListReleaseWeeks(_ context.Context, email string) ([]types.ReleaseWeekRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []types.ReleaseWeekRecord
	for _, rec := range m.releases {
		if rec.Email == email {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].WeekKey < recs[j].WeekKey })
	return recs, nil
}

// Verify Memory implements the store interface.
var _ Store = (*Memory)(nil)
