// Package rank implements occurrence-weighted top-N aggregation for
// tracks, artists, and genres. All functions are pure; ties always
// break toward the earlier-seen entry so repeated runs over the same
// input produce identical output.
package rank

import (
	"sort"

	"github.com/xomify/xomify/types"
)

// Entry is one aggregation candidate.
type Entry struct {
	ID     string
	Weight int
}

// FromIDs counts occurrences in ids, preserving first-seen order.
// Each occurrence contributes weight 1.
func FromIDs(ids []string) []Entry {
	index := make(map[string]int, len(ids))
	var entries []Entry
	for _, id := range ids {
		if i, ok := index[id]; ok {
			entries[i].Weight++
			continue
		}
		index[id] = len(entries)
		entries = append(entries, Entry{ID: id, Weight: 1})
	}
	return entries
}

// Top ranks entries by weight descending and returns at most n items,
// with 1-based ranks assigned. Equal weights keep their input order, so
// the earlier-seen entry wins the tie.
func Top(entries []Entry, n int) []types.RankedItem {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)

	// Stable sort: input order is the tie-break.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]types.RankedItem, len(ranked))
	for i, e := range ranked {
		out[i] = types.RankedItem{ID: e.ID, Weight: e.Weight, Rank: i + 1}
	}
	return out
}

// TopIDs is Top reduced to the ranked ids, best first.
func TopIDs(entries []Entry, n int) []string {
	ranked := Top(entries, n)
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	return ids
}

// CountGenres accumulates genre occurrence counts across artists,
// preserving first-seen order. Each artist contributes 1 per genre it
// carries, regardless of the artist's own rank.
func CountGenres(artistGenres [][]string) []Entry {
	index := make(map[string]int)
	var entries []Entry
	for _, genres := range artistGenres {
		for _, g := range genres {
			if g == "" {
				continue
			}
			if i, ok := index[g]; ok {
				entries[i].Weight++
				continue
			}
			index[g] = len(entries)
			entries = append(entries, Entry{ID: g, Weight: 1})
		}
	}
	return entries
}

// TopGenres counts and ranks genres, returning genre -> count for the
// top n. The map carries the counts; ordering, when needed, comes from
// re-ranking the entries.
func TopGenres(artistGenres [][]string, n int) map[string]int {
	ranked := Top(CountGenres(artistGenres), n)
	out := make(map[string]int, len(ranked))
	for _, r := range ranked {
		out[r.ID] = r.Weight
	}
	return out
}
