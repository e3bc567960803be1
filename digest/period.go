package digest

import (
	"fmt"
	"time"
)

// MonthKey returns the period key for a wrapped run started at t: the
// previous calendar month, formatted "YYYY-MM". A run on the 1st of a
// month digests the month that just ended.
func MonthKey(t time.Time) string {
	prev := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return prev.Format("2006-01")
}

// WeekKey returns the period key for a release radar run started at t,
// formatted "YYYY-WW". Weeks start on Saturday, matching the weekly
// schedule, so runs on Saturday and the following Friday share a key.
func WeekKey(t time.Time) string {
	// Shifting forward two days maps Saturday onto Monday, letting
	// ISOWeek do the numbering.
	year, week := t.AddDate(0, 0, 2).ISOWeek()
	return fmt.Sprintf("%d-%02d", year, week)
}

// MonthlyPlaylistName formats the playlist title for a monthKey, e.g.
// "Xomify July'26".
func MonthlyPlaylistName(monthKey string) string {
	t, err := time.Parse("2006-01", monthKey)
	if err != nil {
		return "Xomify " + monthKey
	}
	return fmt.Sprintf("Xomify %s'%s", t.Month().String(), t.Format("06"))
}

// SeasonalPlaylistName returns the bonus playlist title for June and
// December periods, and "" for every other month. June gets a half-year
// recap, December a full-year one.
func SeasonalPlaylistName(monthKey string) string {
	t, err := time.Parse("2006-01", monthKey)
	if err != nil {
		return ""
	}
	switch t.Month() {
	case time.June:
		return fmt.Sprintf("Xomify Half-Year'%s", t.Format("06"))
	case time.December:
		return fmt.Sprintf("Xomify Wrapped'%s", t.Format("06"))
	default:
		return ""
	}
}

// releasedWithin reports whether a release date string falls inside the
// lookback window ending at now. Precision follows the string's shape:
//
//   - "YYYY" is never new; a year tells us nothing about the week.
//   - "YYYY-MM" is new iff it names the current month.
//   - "YYYY-MM-DD" is new iff 0 <= now-release <= lookbackDays.
//
// Future-dated releases (pre-releases) are not new yet.
func releasedWithin(releaseDate string, now time.Time, lookbackDays int) bool {
	switch len(releaseDate) {
	case len("2006-01"):
		return releaseDate == now.Format("2006-01")
	case len("2006-01-02"):
		released, err := time.Parse("2006-01-02", releaseDate)
		if err != nil {
			return false
		}
		diff := now.Sub(released)
		return diff >= 0 && diff <= time.Duration(lookbackDays)*24*time.Hour
	default:
		return false
	}
}
