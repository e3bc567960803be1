package types

import "time"

// ReleaseType classifies an upstream release.
type ReleaseType string

const (
	ReleaseTypeAlbum       ReleaseType = "album"
	ReleaseTypeSingle      ReleaseType = "single"
	ReleaseTypeCompilation ReleaseType = "compilation"
)

// WrappedRecord is the persisted result of one user's monthly digest.
// One record exists per (email, monthKey); regenerating the same period
// overwrites the previous record.
type WrappedRecord struct {
	Email    string `json:"email" dynamodbav:"email"`
	MonthKey string `json:"monthKey" dynamodbav:"monthKey"`

	// TopTrackIDs and TopArtistIDs hold the ranked ids per time window,
	// best first, truncated to the configured top-N.
	TopTrackIDs  map[TimeWindow][]string `json:"topTrackIds" dynamodbav:"topTrackIds"`
	TopArtistIDs map[TimeWindow][]string `json:"topArtistIds" dynamodbav:"topArtistIds"`

	// TopGenres maps genre name to accumulated count per window, truncated
	// to the configured top-N genres.
	TopGenres map[TimeWindow]map[string]int `json:"topGenres" dynamodbav:"topGenres"`

	// PlaylistID is the monthly playlist written for this period.
	PlaylistID string `json:"playlistId" dynamodbav:"playlistId"`

	// SeasonalPlaylistID is the half-year or full-year playlist, set only
	// for June and December periods. Kept so re-runs reuse it.
	SeasonalPlaylistID string `json:"seasonalPlaylistId,omitempty" dynamodbav:"seasonalPlaylistId,omitempty"`

	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// ReleaseSummary is the album-level detail kept in weekly history records.
type ReleaseSummary struct {
	ID          string      `json:"id" dynamodbav:"id"`
	Name        string      `json:"name" dynamodbav:"name"`
	ArtistIDs   []string    `json:"artistIds" dynamodbav:"artistIds"`
	ReleaseDate string      `json:"releaseDate" dynamodbav:"releaseDate"`
	ReleaseType ReleaseType `json:"releaseType" dynamodbav:"releaseType"`
	TotalTracks int         `json:"totalTracks" dynamodbav:"totalTracks"`
}

// ReleaseWeekRecord is the persisted result of one user's weekly release
// scan. WeekKey uses Saturday-start weeks formatted "YYYY-WW". TrackCount
// accumulates tracks actually added to the playlist, not tracks discovered.
type ReleaseWeekRecord struct {
	Email      string           `json:"email" dynamodbav:"email"`
	WeekKey    string           `json:"weekKey" dynamodbav:"weekKey"`
	Releases   []ReleaseSummary `json:"releases" dynamodbav:"releases"`
	TrackCount int              `json:"trackCount" dynamodbav:"trackCount"`
	PlaylistID string           `json:"playlistId" dynamodbav:"playlistId"`
	CreatedAt  time.Time        `json:"createdAt" dynamodbav:"createdAt"`
}

// ReleaseCandidate is a release discovered during a radar run, before its
// tracks are merged into the playlist target. Candidates are per-run and
// never persisted directly; ReleaseSummary is the stored projection.
type ReleaseCandidate struct {
	ArtistIDs   []string
	ReleaseID   string
	ReleaseName string
	ReleaseDate string
	ReleaseType ReleaseType
	TrackIDs    []string
	TotalTracks int
}

// Summary projects a candidate into its persistable form.
func (c ReleaseCandidate) Summary() ReleaseSummary {
	return ReleaseSummary{
		ID:          c.ReleaseID,
		Name:        c.ReleaseName,
		ArtistIDs:   c.ArtistIDs,
		ReleaseDate: c.ReleaseDate,
		ReleaseType: c.ReleaseType,
		TotalTracks: c.TotalTracks,
	}
}
