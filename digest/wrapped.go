package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xomify/xomify/log"
	"github.com/xomify/xomify/metrics"
	"github.com/xomify/xomify/playlist"
	"github.com/xomify/xomify/rank"
	"github.com/xomify/xomify/spotify"
	"github.com/xomify/xomify/store"
	"github.com/xomify/xomify/types"
)

// Wrapped is the monthly digest orchestrator. One run summarizes the
// previous month for every enrolled user: ranked tracks, artists, and
// genres per time window, persisted alongside a rebuilt monthly
// playlist.
type Wrapped struct {
	Store   store.Store
	Clients ClientFactory
	Covers  CoverSource
	Config  Config
	Log     *log.Logger
	Metrics *metrics.Collector
}

// Run executes the monthly digest across all enrolled users.
// Per-user failures are reported, not returned; the error is non-nil
// only when the run itself cannot proceed (e.g. the user list is
// unavailable).
func (w *Wrapped) Run(ctx context.Context) (*types.RunReport, error) {
	runID := w.Config.runID()
	startedAt := w.Config.now()
	monthKey := MonthKey(startedAt)

	logger := w.Log
	if logger == nil {
		logger = log.NewLogger(runID, types.DigestWrapped)
	}
	logger.Info("wrapped run starting", map[string]any{"month_key": monthKey})

	all, err := w.Store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var users []types.User
	for _, u := range all {
		if u.EnrolledWrapped() {
			users = append(users, u)
		}
	}
	logger.Info("users selected", map[string]any{"enrolled": len(users), "total": len(all)})

	outcomes := runUsers(ctx, users, w.Config.concurrency(), func(ctx context.Context, user types.User) error {
		w.Metrics.IncUserStarted()
		err := w.processUser(ctx, logger.WithUser(user.Email), user, monthKey)
		if err != nil {
			w.Metrics.IncUserFailed()
			logger.Error("user failed", map[string]any{"user": user.Email, "error": err.Error()})
		} else {
			w.Metrics.IncUserSucceeded()
		}
		return err
	})

	report := buildReport(runID, types.DigestWrapped, monthKey, users, outcomes, startedAt, w.Config.now())
	logger.Info("wrapped run finished", map[string]any{
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failures),
		"duration":  report.Duration.String(),
	})
	return report, nil
}

// processUser builds and persists one user's monthly record.
func (w *Wrapped) processUser(ctx context.Context, logger *log.Logger, user types.User, monthKey string) error {
	client, err := w.Clients(ctx, user)
	if err != nil {
		return failStep("authenticate", err)
	}

	rec := types.WrappedRecord{
		Email:        user.Email,
		MonthKey:     monthKey,
		TopTrackIDs:  make(map[types.TimeWindow][]string),
		TopArtistIDs: make(map[types.TimeWindow][]string),
		TopGenres:    make(map[types.TimeWindow]map[string]int),
		CreatedAt:    w.Config.now(),
	}

	// The three windows are independent ranking contexts; fetch them in
	// parallel, then aggregate in canonical window order so tie-breaks
	// stay deterministic.
	windows := types.Windows()
	fetched := make([]windowFetch, len(windows))
	var wg sync.WaitGroup
	for i, window := range windows {
		wg.Add(1)
		go func(i int, window types.TimeWindow) {
			defer wg.Done()
			fetched[i] = w.fetchWindow(ctx, client, window)
		}(i, window)
	}
	wg.Wait()

	for i, window := range windows {
		f := fetched[i]
		if f.err != nil {
			return failStep(f.op, f.err)
		}

		trackIDs := make([]string, 0, len(f.tracks))
		for _, t := range f.tracks {
			trackIDs = append(trackIDs, t.ID)
		}
		rec.TopTrackIDs[window] = rank.TopIDs(rank.FromIDs(trackIDs), w.Config.TopTracks)

		artistIDs := make([]string, 0, len(f.artists))
		genres := make([][]string, 0, len(f.artists))
		for _, a := range f.artists {
			artistIDs = append(artistIDs, a.ID)
			genres = append(genres, a.Genres)
		}
		rec.TopArtistIDs[window] = rank.TopIDs(rank.FromIDs(artistIDs), w.Config.TopArtists)
		rec.TopGenres[window] = rank.TopGenres(genres, w.Config.TopGenres)
	}

	// Re-running the same period reuses the existing playlists.
	existing, err := w.Store.GetWrapped(ctx, user.Email, monthKey)
	switch {
	case err == nil:
		rec.PlaylistID = existing.PlaylistID
		rec.SeasonalPlaylistID = existing.SeasonalPlaylistID
	case errors.Is(err, store.ErrNotFound):
	default:
		return failStep("load_record", err)
	}

	if rec.PlaylistID == "" {
		name := MonthlyPlaylistName(monthKey)
		id, err := client.CreatePlaylist(ctx, user.UserID, name, "Your month in music, by Xomify.", true)
		if err != nil {
			return failStep("create_playlist", err)
		}
		rec.PlaylistID = id
		w.uploadCover(ctx, logger, client, id)
	}

	// The monthly playlist mirrors the short-term ranking; a rebuild
	// removes anything no longer ranked.
	if _, err := playlist.Reconcile(ctx, client, rec.PlaylistID, rec.TopTrackIDs[types.WindowShortTerm], true); err != nil {
		return failStep("reconcile_playlist", err)
	}

	if err := w.seasonalPlaylist(ctx, logger, client, user, monthKey, &rec); err != nil {
		return err
	}

	if err := w.Store.PutWrapped(ctx, rec); err != nil {
		w.Metrics.IncStoreWriteFailure()
		return failStep("persist_record", err)
	}
	w.Metrics.IncStoreWriteSuccess()

	logger.Info("user digest complete", map[string]any{
		"playlist": rec.PlaylistID,
		"tracks":   len(rec.TopTrackIDs[types.WindowShortTerm]),
	})
	return nil
}

// windowFetch carries one window's raw fetch results.
type windowFetch struct {
	tracks  []spotify.Track
	artists []spotify.Artist
	op      string
	err     error
}

func (w *Wrapped) fetchWindow(ctx context.Context, client SpotifyAPI, window types.TimeWindow) windowFetch {
	var f windowFetch
	f.tracks, f.err = client.TopTracks(ctx, window, w.Config.fetchLimit())
	if f.err != nil {
		f.op = "fetch_top_tracks"
		return f
	}
	f.artists, f.err = client.TopArtists(ctx, window, w.Config.fetchLimit())
	if f.err != nil {
		f.op = "fetch_top_artists"
	}
	return f
}

// seasonalPlaylist writes the half-year (June, medium term) or
// full-year (December, long term) bonus playlist when the period calls
// for one.
func (w *Wrapped) seasonalPlaylist(ctx context.Context, logger *log.Logger, client SpotifyAPI, user types.User, monthKey string, rec *types.WrappedRecord) error {
	name := SeasonalPlaylistName(monthKey)
	if name == "" {
		return nil
	}

	// June recaps the half year from the medium-term window; December
	// recaps the whole year from the long-term one.
	window := types.WindowMediumTerm
	if monthKey[len(monthKey)-2:] == "12" {
		window = types.WindowLongTerm
	}

	if rec.SeasonalPlaylistID == "" {
		id, err := client.CreatePlaylist(ctx, user.UserID, name, "A longer look back, by Xomify.", true)
		if err != nil {
			return failStep("create_seasonal_playlist", err)
		}
		rec.SeasonalPlaylistID = id
		w.uploadCover(ctx, logger, client, id)
	}

	if _, err := playlist.Reconcile(ctx, client, rec.SeasonalPlaylistID, rec.TopTrackIDs[window], true); err != nil {
		return failStep("reconcile_seasonal_playlist", err)
	}
	return nil
}

// uploadCover sets cover art if a source is wired. Cover failures are
// logged, not fatal; the playlist works without art.
func (w *Wrapped) uploadCover(ctx context.Context, logger *log.Logger, client SpotifyAPI, playlistID string) {
	if w.Covers == nil || w.Config.CoverKey == "" {
		return
	}
	img, err := w.Covers.FetchCoverBase64(ctx, w.Config.CoverKey)
	if err != nil {
		logger.Warn("cover fetch failed", map[string]any{"error": err.Error()})
		return
	}
	if err := client.UploadPlaylistCover(ctx, playlistID, img); err != nil {
		logger.Warn("cover upload failed", map[string]any{"playlist": playlistID, "error": err.Error()})
	}
}
