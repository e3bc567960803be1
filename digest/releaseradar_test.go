package digest

import (
	"context"
	"testing"
	"time"

	"github.com/xomify/xomify/spotify"
	"github.com/xomify/xomify/store"
	"github.com/xomify/xomify/types"
)

func radarUser(email string) types.User {
	return types.User{
		Email:              email,
		UserID:             "uid-" + email,
		RefreshToken:       "rt-" + email,
		Active:             true,
		ActiveReleaseRadar: true,
	}
}

func albumWithTracks(id, name, date, albumType string, trackIDs ...string) spotify.Album {
	album := spotify.Album{
		ID:          id,
		Name:        name,
		AlbumType:   albumType,
		ReleaseDate: date,
		TotalTracks: len(trackIDs),
	}
	album.Tracks.Items = tracksNamed(trackIDs...)
	return album
}

// radarFixture wires one followed artist with one fresh single and one
// stale album, relative to a run on 2026-08-29.
func radarFixture(api *fakeAPI) {
	api.followed = artistsNamed("a1")
	fresh := albumWithTracks("alb-new", "New Single", "2026-08-27", "single", "nt1", "nt2")
	stale := albumWithTracks("alb-old", "Old Album", "2026-06-01", "album", "ot1")
	api.artistAlbums["a1"] = []spotify.Album{fresh, stale}
	api.albums["alb-new"] = fresh
	api.albums["alb-old"] = stale
}

func radarNow() time.Time {
	return time.Date(2026, time.August, 29, 6, 0, 0, 0, time.UTC)
}

func newRadar(mem *store.Memory, api *fakeAPI) *ReleaseRadar {
	return &ReleaseRadar{
		Store:   mem,
		Clients: singleClientFactory(api),
		Config: Config{
			LookbackDays: 7, ArtistAlbumLimit: 10, Concurrency: 2,
			Now: fixedClock(radarNow()),
		},
	}
}

func TestReleaseRadar_Run(t *testing.T) {
	api := newFakeAPI()
	radarFixture(api)

	mem := store.NewMemory()
	user := radarUser("ada@example.com")
	if err := mem.PutUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	report, err := newRadar(mem, api).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.PeriodKey != WeekKey(radarNow()) {
		t.Errorf("period key = %q", report.PeriodKey)
	}
	if len(report.Succeeded) != 1 || len(report.Failures) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// The playlist reference is written back for reuse next week.
	stored, err := mem.GetUser(context.Background(), user.Email)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ReleaseRadarID == "" {
		t.Fatal("releaseRadarId not written back")
	}

	got := api.tracksIn(stored.ReleaseRadarID)
	if len(got) != 2 || got[0] != "nt1" || got[1] != "nt2" {
		t.Errorf("playlist tracks = %v, want the fresh single only", got)
	}

	rec, err := mem.GetReleaseWeek(context.Background(), user.Email, report.PeriodKey)
	if err != nil {
		t.Fatalf("week record not persisted: %v", err)
	}
	if len(rec.Releases) != 1 || rec.Releases[0].ID != "alb-new" {
		t.Errorf("recorded releases = %+v", rec.Releases)
	}
	if rec.Releases[0].ReleaseType != types.ReleaseTypeSingle {
		t.Errorf("release type = %q", rec.Releases[0].ReleaseType)
	}
	if rec.TrackCount != 2 {
		t.Errorf("track count = %d", rec.TrackCount)
	}
	if rec.PlaylistID != stored.ReleaseRadarID {
		t.Errorf("record playlist %q != user playlist %q", rec.PlaylistID, stored.ReleaseRadarID)
	}
}

func TestReleaseRadar_RerunSkipsSeenReleases(t *testing.T) {
	api := newFakeAPI()
	radarFixture(api)

	mem := store.NewMemory()
	if err := mem.PutUser(context.Background(), radarUser("ada@example.com")); err != nil {
		t.Fatal(err)
	}

	radar := newRadar(mem, api)
	if _, err := radar.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := radar.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	stored, err := mem.GetUser(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	got := api.tracksIn(stored.ReleaseRadarID)
	if len(got) != 2 {
		t.Errorf("rerun duplicated tracks: %v", got)
	}

	rec, err := mem.GetReleaseWeek(context.Background(), "ada@example.com", WeekKey(radarNow()))
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Releases) != 1 || rec.TrackCount != 2 {
		t.Errorf("rerun grew the record: %d releases, %d tracks", len(rec.Releases), rec.TrackCount)
	}
	if api.playlistCount() != 1 {
		t.Errorf("rerun created a playlist, have %d", api.playlistCount())
	}
}

func TestReleaseRadar_PlaylistIsAdditive(t *testing.T) {
	api := newFakeAPI()
	radarFixture(api)

	// The long-lived playlist still holds last week's tracks.
	api.playlists["pl-existing"] = []string{"lastweek1", "lastweek2"}
	api.playlistNames["pl-existing"] = "Xomify Release Radar"

	mem := store.NewMemory()
	user := radarUser("ada@example.com")
	user.ReleaseRadarID = "pl-existing"
	if err := mem.PutUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	if _, err := newRadar(mem, api).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := api.tracksIn("pl-existing")
	want := []string{"lastweek1", "lastweek2", "nt1", "nt2"}
	if len(got) != len(want) {
		t.Fatalf("playlist = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("playlist = %v, want %v", got, want)
		}
	}
	if api.playlistCount() != 1 {
		t.Errorf("should reuse the stored playlist, have %d", api.playlistCount())
	}
}

func TestReleaseRadar_TrackCountExcludesAlreadyPresent(t *testing.T) {
	api := newFakeAPI()
	radarFixture(api)

	// nt1 is already in the playlist from an earlier appearance; only nt2
	// is actually added this week.
	api.playlists["pl-existing"] = []string{"nt1"}
	api.playlistNames["pl-existing"] = "Xomify Release Radar"

	mem := store.NewMemory()
	user := radarUser("ada@example.com")
	user.ReleaseRadarID = "pl-existing"
	if err := mem.PutUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	if _, err := newRadar(mem, api).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := api.tracksIn("pl-existing")
	if len(got) != 2 || got[0] != "nt1" || got[1] != "nt2" {
		t.Fatalf("playlist = %v, want [nt1 nt2]", got)
	}

	rec, err := mem.GetReleaseWeek(context.Background(), "ada@example.com", WeekKey(radarNow()))
	if err != nil {
		t.Fatal(err)
	}
	if rec.TrackCount != 1 {
		t.Errorf("track count = %d, want 1 (nt1 was already present)", rec.TrackCount)
	}
	if len(rec.Releases) != 1 {
		t.Errorf("recorded releases = %+v", rec.Releases)
	}
}

func TestReleaseRadar_CollaborationCountedOnce(t *testing.T) {
	api := newFakeAPI()
	api.followed = artistsNamed("a1", "a2")
	collab := albumWithTracks("alb-collab", "Joint EP", "2026-08-28", "single", "ct1")
	api.artistAlbums["a1"] = []spotify.Album{collab}
	api.artistAlbums["a2"] = []spotify.Album{collab}
	api.albums["alb-collab"] = collab

	mem := store.NewMemory()
	if err := mem.PutUser(context.Background(), radarUser("ada@example.com")); err != nil {
		t.Fatal(err)
	}

	if _, err := newRadar(mem, api).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec, err := mem.GetReleaseWeek(context.Background(), "ada@example.com", WeekKey(radarNow()))
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Releases) != 1 {
		t.Fatalf("collaboration recorded %d times", len(rec.Releases))
	}
	if len(rec.Releases[0].ArtistIDs) != 2 {
		t.Errorf("expected both artists on the release, got %v", rec.Releases[0].ArtistIDs)
	}
	if rec.TrackCount != 1 {
		t.Errorf("track count = %d", rec.TrackCount)
	}

	stored, _ := mem.GetUser(context.Background(), "ada@example.com")
	if got := api.tracksIn(stored.ReleaseRadarID); len(got) != 1 {
		t.Errorf("collaboration tracks duplicated: %v", got)
	}
}

func TestReleaseRadar_NoNewReleases(t *testing.T) {
	api := newFakeAPI()
	api.followed = artistsNamed("a1")
	api.artistAlbums["a1"] = []spotify.Album{
		albumWithTracks("alb-old", "Old Album", "2026-01-01", "album", "ot1"),
	}
	api.playlists["pl-existing"] = []string{"keep1"}

	mem := store.NewMemory()
	user := radarUser("ada@example.com")
	user.ReleaseRadarID = "pl-existing"
	if err := mem.PutUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	report, err := newRadar(mem, api).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Succeeded) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := api.tracksIn("pl-existing"); len(got) != 1 || got[0] != "keep1" {
		t.Errorf("quiet week should not touch the playlist, got %v", got)
	}
}

func TestReleaseRadar_UserFailureIsolated(t *testing.T) {
	goodAPI := newFakeAPI()
	radarFixture(goodAPI)
	badAPI := newFakeAPI()
	radarFixture(badAPI)
	badAPI.failOp = "followed"

	mem := store.NewMemory()
	good := radarUser("good@example.com")
	bad := radarUser("bad@example.com")
	for _, u := range []types.User{good, bad} {
		if err := mem.PutUser(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}

	radar := newRadar(mem, goodAPI)
	radar.Clients = func(_ context.Context, u types.User) (SpotifyAPI, error) {
		if u.Email == bad.Email {
			return badAPI, nil
		}
		return goodAPI, nil
	}

	report, err := radar.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Succeeded) != 1 || report.Succeeded[0] != good.Email {
		t.Errorf("succeeded = %v", report.Succeeded)
	}
	if len(report.Failures) != 1 || report.Failures[0].Op != "fetch_followed" {
		t.Errorf("failures = %+v", report.Failures)
	}
}
