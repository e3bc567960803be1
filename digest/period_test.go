package digest

import (
	"testing"
	"time"
)

func TestMonthKey_PreviousMonth(t *testing.T) {
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), "2026-07"},
		{time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC), "2026-07"},
		{time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC), "2025-12"},
		{time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), "2026-02"},
	}
	for _, tc := range cases {
		if got := MonthKey(tc.at); got != tc.want {
			t.Errorf("MonthKey(%s) = %q, want %q", tc.at.Format(time.RFC3339), got, tc.want)
		}
	}
}

func TestWeekKey_SaturdayBoundary(t *testing.T) {
	// 2026-08-29 is a Saturday; the following Friday shares its key,
	// the previous Friday does not.
	saturday := time.Date(2026, time.August, 29, 6, 0, 0, 0, time.UTC)
	friday := time.Date(2026, time.September, 4, 23, 0, 0, 0, time.UTC)
	priorFriday := time.Date(2026, time.August, 28, 23, 0, 0, 0, time.UTC)

	if WeekKey(saturday) != WeekKey(friday) {
		t.Errorf("saturday and following friday should share a key, got %q and %q", WeekKey(saturday), WeekKey(friday))
	}
	if WeekKey(saturday) == WeekKey(priorFriday) {
		t.Errorf("saturday should start a new week, got %q for both", WeekKey(saturday))
	}
}

func TestWeekKey_Format(t *testing.T) {
	got := WeekKey(time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC))
	if len(got) != len("2026-02") {
		t.Errorf("week key %q not zero-padded YYYY-WW", got)
	}
}

func TestMonthlyPlaylistName(t *testing.T) {
	if got := MonthlyPlaylistName("2026-07"); got != "Xomify July'26" {
		t.Errorf("got %q", got)
	}
	if got := MonthlyPlaylistName("2025-12"); got != "Xomify December'25" {
		t.Errorf("got %q", got)
	}
}

func TestSeasonalPlaylistName(t *testing.T) {
	if got := SeasonalPlaylistName("2026-06"); got != "Xomify Half-Year'26" {
		t.Errorf("june: got %q", got)
	}
	if got := SeasonalPlaylistName("2026-12"); got != "Xomify Wrapped'26" {
		t.Errorf("december: got %q", got)
	}
	if got := SeasonalPlaylistName("2026-07"); got != "" {
		t.Errorf("july should have no seasonal playlist, got %q", got)
	}
}

func TestReleasedWithin(t *testing.T) {
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		date string
		want bool
	}{
		{"2026-08-27", true},  // 2 days ago
		{"2026-08-29", true},  // today
		{"2026-08-19", false}, // 10 days ago, outside a 7-day window
		{"2026-08-23", true},  // 6.5 days with the midday clock
		{"2026-08-22", false}, // 7.5 days, just outside
		{"2026-09-01", false}, // future
		{"2026-08", true},     // month precision, current month
		{"2026-07", false},    // month precision, previous month
		{"2026", false},       // year precision is never new
		{"garbage-date", false},
	}
	for _, tc := range cases {
		if got := releasedWithin(tc.date, now, 7); got != tc.want {
			t.Errorf("releasedWithin(%q) = %v, want %v", tc.date, got, tc.want)
		}
	}
}
