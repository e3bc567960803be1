package digest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/xomify/xomify/spotify"
	"github.com/xomify/xomify/types"
)

// fakeAPI is an in-memory SpotifyAPI for orchestrator tests. Playlist
// state is mutable so reconciliation effects can be asserted.
type fakeAPI struct {
	mu sync.Mutex

	topTracks    map[types.TimeWindow][]spotify.Track
	topArtists   map[types.TimeWindow][]spotify.Artist
	followed     []spotify.Artist
	artistAlbums map[string][]spotify.Album
	albums       map[string]spotify.Album

	playlists     map[string][]string
	playlistNames map[string]string
	nextID        int
	coverUploads  int

	// failOp makes the matching operation return an error.
	failOp string
}

var errFakeFail = errors.New("injected failure")

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		topTracks:     make(map[types.TimeWindow][]spotify.Track),
		topArtists:    make(map[types.TimeWindow][]spotify.Artist),
		artistAlbums:  make(map[string][]spotify.Album),
		albums:        make(map[string]spotify.Album),
		playlists:     make(map[string][]string),
		playlistNames: make(map[string]string),
	}
}

func (f *fakeAPI) fail(op string) error {
	if f.failOp == op {
		return fmt.Errorf("%s: %w", op, errFakeFail)
	}
	return nil
}

func (f *fakeAPI) TopTracks(_ context.Context, window types.TimeWindow, limit int) ([]spotify.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("top_tracks"); err != nil {
		return nil, err
	}
	items := f.topTracks[window]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeAPI) TopArtists(_ context.Context, window types.TimeWindow, limit int) ([]spotify.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("top_artists"); err != nil {
		return nil, err
	}
	items := f.topArtists[window]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeAPI) FollowedArtists(_ context.Context) ([]spotify.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("followed"); err != nil {
		return nil, err
	}
	return f.followed, nil
}

func (f *fakeAPI) ArtistAlbums(_ context.Context, artistID string, limit int) ([]spotify.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("artist_albums"); err != nil {
		return nil, err
	}
	items := f.artistAlbums[artistID]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeAPI) Albums(_ context.Context, ids []string) ([]spotify.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("albums"); err != nil {
		return nil, err
	}
	out := make([]spotify.Album, 0, len(ids))
	for _, id := range ids {
		if album, ok := f.albums[id]; ok {
			out = append(out, album)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreatePlaylist(_ context.Context, _, name, _ string, _ bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("create_playlist"); err != nil {
		return "", err
	}
	f.nextID++
	id := "pl-" + strconv.Itoa(f.nextID)
	f.playlists[id] = nil
	f.playlistNames[id] = name
	return id, nil
}

func (f *fakeAPI) UploadPlaylistCover(_ context.Context, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("upload_cover"); err != nil {
		return err
	}
	f.coverUploads++
	return nil
}

func (f *fakeAPI) PlaylistTracks(_ context.Context, playlistID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("playlist_tracks"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.playlists[playlistID]...), nil
}

func (f *fakeAPI) AddPlaylistTracks(_ context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("add_tracks"); err != nil {
		return err
	}
	f.playlists[playlistID] = append(f.playlists[playlistID], trackIDs...)
	return nil
}

func (f *fakeAPI) RemovePlaylistTracks(_ context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("remove_tracks"); err != nil {
		return err
	}
	drop := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		drop[id] = true
	}
	var kept []string
	for _, id := range f.playlists[playlistID] {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	f.playlists[playlistID] = kept
	return nil
}

func (f *fakeAPI) tracksIn(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.playlists[playlistID]...)
}

func (f *fakeAPI) playlistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playlists)
}

// singleClientFactory hands the same fake to every user.
func singleClientFactory(api *fakeAPI) ClientFactory {
	return func(_ context.Context, _ types.User) (SpotifyAPI, error) {
		return api, nil
	}
}

func tracksNamed(ids ...string) []spotify.Track {
	out := make([]spotify.Track, len(ids))
	for i, id := range ids {
		out[i] = spotify.Track{ID: id, Name: "track " + id}
	}
	return out
}

func artistsNamed(ids ...string) []spotify.Artist {
	out := make([]spotify.Artist, len(ids))
	for i, id := range ids {
		out[i] = spotify.Artist{ID: id, Name: "artist " + id}
	}
	return out
}
