package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xomify/xomify/types"
)

func TestMemory_UserRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	user := types.User{Email: "a@example.com", UserID: "u1", Active: true, ActiveWrapped: true}
	if err := m.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	got, err := m.GetUser(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.UserID != "u1" || !got.EnrolledWrapped() {
		t.Errorf("got %+v", got)
	}
}

func TestMemory_GetUserNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.GetUser(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ListUsersSorted(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		_ = m.PutUser(ctx, types.User{Email: email})
	}

	users, err := m.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("got %d users, want 3", len(users))
	}
	if users[0].Email != "a@x.com" || users[2].Email != "c@x.com" {
		t.Errorf("users not sorted: %v, %v, %v", users[0].Email, users[1].Email, users[2].Email)
	}
}

func TestMemory_SetReleaseRadarID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.PutUser(ctx, types.User{Email: "a@x.com", Active: true})
	if err := m.SetReleaseRadarID(ctx, "a@x.com", "pl-123"); err != nil {
		t.Fatalf("SetReleaseRadarID failed: %v", err)
	}

	got, _ := m.GetUser(ctx, "a@x.com")
	if got.ReleaseRadarID != "pl-123" {
		t.Errorf("ReleaseRadarID = %q, want pl-123", got.ReleaseRadarID)
	}
	if !got.Active {
		t.Error("other fields must be untouched")
	}

	if err := m.SetReleaseRadarID(ctx, "nobody@x.com", "pl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestMemory_WrappedOverwriteSamePeriod(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := types.WrappedRecord{Email: "a@x.com", MonthKey: "2026-07", PlaylistID: "pl-1", CreatedAt: time.Now()}
	if err := m.PutWrapped(ctx, rec); err != nil {
		t.Fatalf("PutWrapped failed: %v", err)
	}

	rec.PlaylistID = "pl-2"
	if err := m.PutWrapped(ctx, rec); err != nil {
		t.Fatalf("second PutWrapped failed: %v", err)
	}

	recs, err := m.ListWrapped(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("ListWrapped failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 (same period overwrites)", len(recs))
	}
	if recs[0].PlaylistID != "pl-2" {
		t.Errorf("PlaylistID = %q, want pl-2", recs[0].PlaylistID)
	}
}

func TestMemory_WrappedNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.GetWrapped(context.Background(), "a@x.com", "2026-01")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ReleaseWeekRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := types.ReleaseWeekRecord{
		Email:   "a@x.com",
		WeekKey: "2026-35",
		Releases: []types.ReleaseSummary{
			{ID: "al1", Name: "New Drop", ReleaseType: types.ReleaseTypeSingle},
		},
		TrackCount: 3,
		PlaylistID: "pl-rr",
	}
	if err := m.PutReleaseWeek(ctx, rec); err != nil {
		t.Fatalf("PutReleaseWeek failed: %v", err)
	}

	got, err := m.GetReleaseWeek(ctx, "a@x.com", "2026-35")
	if err != nil {
		t.Fatalf("GetReleaseWeek failed: %v", err)
	}
	if len(got.Releases) != 1 || got.Releases[0].ID != "al1" {
		t.Errorf("got %+v", got)
	}

	weeks, err := m.ListReleaseWeeks(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("ListReleaseWeeks failed: %v", err)
	}
	if len(weeks) != 1 {
		t.Errorf("got %d weeks, want 1", len(weeks))
	}
}

func TestMemory_HistoryIsolatedPerUser(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.PutWrapped(ctx, types.WrappedRecord{Email: "a@x.com", MonthKey: "2026-07"})
	_ = m.PutWrapped(ctx, types.WrappedRecord{Email: "b@x.com", MonthKey: "2026-07"})

	recs, _ := m.ListWrapped(ctx, "a@x.com")
	if len(recs) != 1 {
		t.Errorf("got %d records for a@x.com, want 1", len(recs))
	}
}

func TestMemory_ErrorClassification(t *testing.T) {
	m := NewMemory()

	_, err := m.GetUser(context.Background(), "x")
	var storeErr *Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if storeErr.Op != "get_user" {
		t.Errorf("Op = %q, want get_user", storeErr.Op)
	}
}
