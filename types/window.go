// Package types defines core domain types for the xomify digest service.
//
//nolint:revive // types is a common Go package naming convention
package types

// TimeWindow is a ranking horizon supported by the upstream top-items API.
// Each window is an independent ranking context; results are never merged
// across windows.
type TimeWindow string

const (
	// WindowShortTerm covers roughly the last four weeks of listening.
	WindowShortTerm TimeWindow = "short_term"
	// WindowMediumTerm covers roughly the last six months.
	WindowMediumTerm TimeWindow = "medium_term"
	// WindowLongTerm covers the full listening history.
	WindowLongTerm TimeWindow = "long_term"
)

// Windows returns all time windows in their canonical order.
// The order is load-bearing: digests enumerate windows in this order, and
// first-seen tie-breaks are computed over it.
func Windows() []TimeWindow {
	return []TimeWindow{WindowShortTerm, WindowMediumTerm, WindowLongTerm}
}

// RankedItem is one entry of a ranked summary.
type RankedItem struct {
	// ID is the upstream item id (track or artist).
	ID string `json:"id"`
	// Weight is the occurrence count backing the rank.
	Weight int `json:"weight"`
	// Rank is the 1-based position, weight descending.
	Rank int `json:"rank"`
}
