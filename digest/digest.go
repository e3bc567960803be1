// Package digest implements the two batch orchestrators: the monthly
// wrapped digest and the weekly release radar.
//
// Both walk the enrolled users with bounded concurrency, isolate
// per-user failures, and persist one history record per (user, period).
// Re-running a period converges to the same result.
package digest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xomify/xomify/playlist"
	"github.com/xomify/xomify/spotify"
	"github.com/xomify/xomify/types"
)

// SpotifyAPI is the client surface the orchestrators use. *spotify.Client
// satisfies it; tests substitute fakes.
type SpotifyAPI interface {
	TopTracks(ctx context.Context, window types.TimeWindow, limit int) ([]spotify.Track, error)
	TopArtists(ctx context.Context, window types.TimeWindow, limit int) ([]spotify.Artist, error)
	FollowedArtists(ctx context.Context) ([]spotify.Artist, error)
	ArtistAlbums(ctx context.Context, artistID string, limit int) ([]spotify.Album, error)
	Albums(ctx context.Context, ids []string) ([]spotify.Album, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (string, error)
	UploadPlaylistCover(ctx context.Context, playlistID string, jpegBase64 []byte) error

	playlist.Writer
}

// ClientFactory builds an authenticated API client for one user.
// Implementations exchange the user's refresh token before returning.
type ClientFactory func(ctx context.Context, user types.User) (SpotifyAPI, error)

// CoverSource supplies playlist cover art. Optional; a nil source skips
// cover upload.
type CoverSource interface {
	FetchCoverBase64(ctx context.Context, key string) ([]byte, error)
}

// Config holds the aggregation and batch tuning knobs shared by both
// orchestrators.
type Config struct {
	// TopTracks, TopArtists, TopGenres bound the ranked summaries.
	TopTracks  int
	TopArtists int
	TopGenres  int

	// FetchLimit caps how many items are pulled per window before
	// ranking. Wider than the top-N so genre counts aggregate over the
	// whole listening window.
	FetchLimit int

	// LookbackDays is the release radar window.
	LookbackDays int
	// ArtistAlbumLimit caps recent releases fetched per artist.
	ArtistAlbumLimit int

	// Concurrency bounds simultaneous user processing.
	Concurrency int

	// CoverKey is the S3 key for playlist cover art, used when a cover
	// source is wired.
	CoverKey string

	// RunID overrides the generated run id, letting callers correlate
	// logs, metrics, and the report.
	RunID string

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Config) runID() string {
	if c.RunID != "" {
		return c.RunID
	}
	return uuid.New().String()
}

func (c Config) fetchLimit() int {
	if c.FetchLimit > 0 {
		return c.FetchLimit
	}
	return 50
}

func (c Config) concurrency() int {
	if c.Concurrency <= 0 {
		return 1
	}
	return c.Concurrency
}
