package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xomify/xomify/log"
	"github.com/xomify/xomify/metrics"
	"github.com/xomify/xomify/playlist"
	"github.com/xomify/xomify/spotify"
	"github.com/xomify/xomify/store"
	"github.com/xomify/xomify/types"
)

// ReleaseRadar is the weekly digest orchestrator. One run scans each
// enrolled user's followed artists for releases inside the lookback
// window and appends their tracks to the user's long-lived radar
// playlist. The playlist is additive; last week's tracks stay.
type ReleaseRadar struct {
	Store   store.Store
	Clients ClientFactory
	Covers  CoverSource
	Config  Config
	Log     *log.Logger
	Metrics *metrics.Collector
}

// Run executes the weekly release scan across all enrolled users.
func (r *ReleaseRadar) Run(ctx context.Context) (*types.RunReport, error) {
	runID := r.Config.runID()
	startedAt := r.Config.now()
	weekKey := WeekKey(startedAt)

	logger := r.Log
	if logger == nil {
		logger = log.NewLogger(runID, types.DigestReleaseRadar)
	}
	logger.Info("release radar run starting", map[string]any{"week_key": weekKey})

	all, err := r.Store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var users []types.User
	for _, u := range all {
		if u.EnrolledReleaseRadar() {
			users = append(users, u)
		}
	}
	logger.Info("users selected", map[string]any{"enrolled": len(users), "total": len(all)})

	outcomes := runUsers(ctx, users, r.Config.concurrency(), func(ctx context.Context, user types.User) error {
		r.Metrics.IncUserStarted()
		err := r.processUser(ctx, logger.WithUser(user.Email), user, weekKey)
		if err != nil {
			r.Metrics.IncUserFailed()
			logger.Error("user failed", map[string]any{"user": user.Email, "error": err.Error()})
		} else {
			r.Metrics.IncUserSucceeded()
		}
		return err
	})

	report := buildReport(runID, types.DigestReleaseRadar, weekKey, users, outcomes, startedAt, r.Config.now())
	logger.Info("release radar run finished", map[string]any{
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failures),
		"duration":  report.Duration.String(),
	})
	return report, nil
}

// processUser scans one user's followed artists and updates their radar
// playlist and weekly history record.
func (r *ReleaseRadar) processUser(ctx context.Context, logger *log.Logger, user types.User, weekKey string) error {
	client, err := r.Clients(ctx, user)
	if err != nil {
		return failStep("authenticate", err)
	}

	artists, err := client.FollowedArtists(ctx)
	if err != nil {
		return failStep("fetch_followed", err)
	}

	now := r.Config.now()
	candidates, err := r.discover(ctx, client, artists, now)
	if err != nil {
		return err
	}

	// Re-running the same week skips releases already recorded; only
	// newly seen releases contribute tracks.
	existing, err := r.Store.GetReleaseWeek(ctx, user.Email, weekKey)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		existing = types.ReleaseWeekRecord{Email: user.Email, WeekKey: weekKey}
	default:
		return failStep("load_record", err)
	}

	seen := make(map[string]bool, len(existing.Releases))
	for _, rel := range existing.Releases {
		seen[rel.ID] = true
	}
	fresh := candidates[:0]
	for _, cand := range candidates {
		if !seen[cand.ReleaseID] {
			fresh = append(fresh, cand)
		}
	}

	if len(fresh) == 0 && existing.PlaylistID != "" {
		logger.Info("no new releases", map[string]any{"followed": len(artists)})
		return nil
	}

	if err := r.resolveTracks(ctx, client, fresh); err != nil {
		return err
	}

	playlistID := user.ReleaseRadarID
	if playlistID == "" {
		id, err := client.CreatePlaylist(ctx, user.UserID, "Xomify Release Radar", "New releases from artists you follow, by Xomify.", false)
		if err != nil {
			return failStep("create_playlist", err)
		}
		playlistID = id
		r.uploadCover(ctx, logger, client, id)
		// Persist the reference immediately so a later failure in this
		// run does not orphan the playlist.
		if err := r.Store.SetReleaseRadarID(ctx, user.Email, id); err != nil {
			return failStep("persist_playlist_id", err)
		}
	}

	var target []string
	trackSeen := make(map[string]bool)
	for _, cand := range fresh {
		for _, id := range cand.TrackIDs {
			if !trackSeen[id] {
				trackSeen[id] = true
				target = append(target, id)
			}
		}
	}

	plan, err := playlist.Reconcile(ctx, client, playlistID, target, false)
	if err != nil {
		return failStep("reconcile_playlist", err)
	}

	record := existing
	record.PlaylistID = playlistID
	record.CreatedAt = now
	for _, cand := range fresh {
		record.Releases = append(record.Releases, cand.Summary())
	}
	// Count what the reconcile actually added; tracks already in the
	// playlist do not inflate the weekly total.
	record.TrackCount += len(plan.Add)

	if err := r.Store.PutReleaseWeek(ctx, record); err != nil {
		r.Metrics.IncStoreWriteFailure()
		return failStep("persist_record", err)
	}
	r.Metrics.IncStoreWriteSuccess()

	logger.Info("user scan complete", map[string]any{
		"followed":     len(artists),
		"new_releases": len(fresh),
		"new_tracks":   len(plan.Add),
		"playlist":     playlistID,
	})
	return nil
}

// discover collects releases inside the lookback window across the
// followed artists. Duplicate releases (collaborations surface once per
// artist) are merged, keeping every contributing artist id.
func (r *ReleaseRadar) discover(ctx context.Context, client SpotifyAPI, artists []spotify.Artist, now time.Time) ([]types.ReleaseCandidate, error) {
	byID := make(map[string]int)
	var out []types.ReleaseCandidate

	for _, artist := range artists {
		albums, err := client.ArtistAlbums(ctx, artist.ID, r.Config.ArtistAlbumLimit)
		if err != nil {
			return nil, failStep("fetch_releases", err)
		}
		for _, album := range albums {
			if !releasedWithin(album.ReleaseDate, now, r.Config.LookbackDays) {
				continue
			}
			if idx, ok := byID[album.ID]; ok {
				out[idx] = mergeArtist(out[idx], artist.ID)
				continue
			}
			byID[album.ID] = len(out)
			out = append(out, types.ReleaseCandidate{
				ArtistIDs:   []string{artist.ID},
				ReleaseID:   album.ID,
				ReleaseName: album.Name,
				ReleaseDate: album.ReleaseDate,
				ReleaseType: types.ReleaseType(album.AlbumType),
				TotalTracks: album.TotalTracks,
			})
		}
	}
	return out, nil
}

// resolveTracks fills candidate track ids from the batch albums
// endpoint. Albums the upstream no longer knows keep an empty track
// list and still count as seen.
func (r *ReleaseRadar) resolveTracks(ctx context.Context, client SpotifyAPI, candidates []types.ReleaseCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]string, len(candidates))
	idx := make(map[string]int, len(candidates))
	for i, cand := range candidates {
		ids[i] = cand.ReleaseID
		idx[cand.ReleaseID] = i
	}

	albums, err := client.Albums(ctx, ids)
	if err != nil {
		return failStep("fetch_tracks", err)
	}
	for _, album := range albums {
		i, ok := idx[album.ID]
		if !ok {
			continue
		}
		trackIDs := make([]string, 0, len(album.Tracks.Items))
		for _, t := range album.Tracks.Items {
			if t.ID != "" {
				trackIDs = append(trackIDs, t.ID)
			}
		}
		candidates[i].TrackIDs = trackIDs
	}
	return nil
}

func mergeArtist(cand types.ReleaseCandidate, artistID string) types.ReleaseCandidate {
	for _, id := range cand.ArtistIDs {
		if id == artistID {
			return cand
		}
	}
	cand.ArtistIDs = append(cand.ArtistIDs, artistID)
	return cand
}

// uploadCover mirrors the wrapped orchestrator's best-effort cover
// upload.
func (r *ReleaseRadar) uploadCover(ctx context.Context, logger *log.Logger, client SpotifyAPI, playlistID string) {
	if r.Covers == nil || r.Config.CoverKey == "" {
		return
	}
	img, err := r.Covers.FetchCoverBase64(ctx, r.Config.CoverKey)
	if err != nil {
		logger.Warn("cover fetch failed", map[string]any{"error": err.Error()})
		return
	}
	if err := client.UploadPlaylistCover(ctx, playlistID, img); err != nil {
		logger.Warn("cover upload failed", map[string]any{"playlist": playlistID, "error": err.Error()})
	}
}
