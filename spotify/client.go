package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xomify/xomify/metrics"
	"github.com/xomify/xomify/types"
)

// Upstream batch and page limits. These track the web API's documented
// maximums; exceeding them returns a 400.
const (
	// AlbumBatchSize is the max ids per GET /albums call.
	AlbumBatchSize = 20
	// PlaylistBatchSize is the max tracks per playlist add/remove call.
	PlaylistBatchSize = 100
	// maxPageLimit is the max page size for offset-paged endpoints.
	maxPageLimit = 50
	// playlistTracksPageLimit is the page size for playlist track reads.
	playlistTracksPageLimit = 100
)

// DefaultTimeout is the default per-request HTTP timeout.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the web API root (required).
	BaseURL string
	// AccountsURL is the token service root (required for Authenticate).
	AccountsURL string
	// ClientID and ClientSecret authenticate the refresh grant.
	ClientID     string
	ClientSecret string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
	// Retries is the retry attempts per request (default 4).
	Retries *int
	// Governor gates request issue; required, and shared across all
	// clients of a run so one 429 holds everyone.
	Governor *Governor
	// Metrics receives request counters; may be nil.
	Metrics *metrics.Collector
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the web API on behalf of one user. Construct one per
// user and call Authenticate before any other operation.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accountsURL string

	clientID     string
	clientSecret string
	accessToken  string

	governor *Governor
	metrics  *metrics.Collector
	retries  int
}

// NewClient creates a client from the given options.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("spotify client requires a base URL")
	}
	if opts.Governor == nil {
		return nil, errors.New("spotify client requires a governor")
	}
	retries := DefaultRetries
	if opts.Retries != nil {
		if *opts.Retries < 0 {
			return nil, fmt.Errorf("retries must be >= 0, got %d", *opts.Retries)
		}
		retries = *opts.Retries
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		accountsURL:  strings.TrimSuffix(opts.AccountsURL, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		governor:     opts.Governor,
		metrics:      opts.Metrics,
		retries:      retries,
	}, nil
}

// --- Wire types ---

// ArtistRef is the artist stub embedded in tracks and albums.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a track as returned by the top-items and album endpoints.
type Track struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	URI     string      `json:"uri"`
	Artists []ArtistRef `json:"artists"`
}

// Artist is a full artist object, including genres.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URI    string   `json:"uri"`
	Genres []string `json:"genres"`
}

// Album is an album object. Tracks are populated only by the batch
// albums endpoint.
type Album struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	URI         string      `json:"uri"`
	AlbumType   string      `json:"album_type"`
	ReleaseDate string      `json:"release_date"`
	TotalTracks int         `json:"total_tracks"`
	Artists     []ArtistRef `json:"artists"`
	Tracks      struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

// pagedResponse is the offset-paged envelope common to most list
// endpoints.
type pagedResponse[T any] struct {
	Items  []T    `json:"items"`
	Next   string `json:"next"`
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// --- Authentication ---

// Authenticate exchanges the user's refresh token for an access token.
// Must be called before any API operation.
func (c *Client) Authenticate(ctx context.Context, refreshToken string) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	body, err := c.do(ctx, apiRequest{
		op:          "authenticate",
		method:      http.MethodPost,
		url:         c.accountsURL + "/api/token",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return newAPIError(ErrAuth, "authenticate", "/api/token", apiErr.Status, apiErr.Err)
		}
		return err
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return newAPIError(ErrMalformed, "authenticate", "/api/token", 0, err)
	}
	if tok.AccessToken == "" {
		return newAPIError(ErrAuth, "authenticate", "/api/token", 0, errors.New("empty access token"))
	}
	c.accessToken = tok.AccessToken
	return nil
}

// --- Top items ---

// TopTracks returns the user's top tracks for the window, best first,
// up to limit.
func (c *Client) TopTracks(ctx context.Context, window types.TimeWindow, limit int) ([]Track, error) {
	pager := offsetPager[Track](c, "top_tracks", "/me/top/tracks", url.Values{
		"time_range": {string(window)},
	}, limit)
	return Collect(ctx, pager, limit)
}

// TopArtists returns the user's top artists for the window, best first,
// up to limit.
func (c *Client) TopArtists(ctx context.Context, window types.TimeWindow, limit int) ([]Artist, error) {
	pager := offsetPager[Artist](c, "top_artists", "/me/top/artists", url.Values{
		"time_range": {string(window)},
	}, limit)
	return Collect(ctx, pager, limit)
}

// offsetPager builds a pager over an offset-paged endpoint. The cursor
// encodes the next offset. A short page ends pagination.
func offsetPager[T any](c *Client, op, path string, query url.Values, want int) *Pager[T] {
	pageSize := maxPageLimit
	if want > 0 && want < pageSize {
		pageSize = want
	}
	return NewPager(func(ctx context.Context, cursor string) ([]T, string, error) {
		offset := 0
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil {
				return nil, "", newAPIError(ErrMalformed, op, path, 0, fmt.Errorf("bad cursor %q: %w", cursor, err))
			}
			offset = n
		}

		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))

		body, err := c.do(ctx, apiRequest{
			op:     op,
			method: http.MethodGet,
			url:    c.baseURL + path + "?" + q.Encode(),
		})
		if err != nil {
			if isNotFound(err) {
				return nil, "", nil
			}
			return nil, "", err
		}

		var page pagedResponse[T]
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, "", newAPIError(ErrMalformed, op, path, 0, err)
		}

		next := ""
		if page.Next != "" && len(page.Items) == pageSize {
			next = strconv.Itoa(offset + len(page.Items))
		}
		return page.Items, next, nil
	})
}

// --- Followed artists ---

// FollowedArtists returns every artist the user follows. The endpoint
// is cursor-paged; the upstream next URL is followed verbatim.
func (c *Client) FollowedArtists(ctx context.Context) ([]Artist, error) {
	first := c.baseURL + "/me/following?type=artist&limit=" + strconv.Itoa(maxPageLimit)

	pager := NewPager(func(ctx context.Context, cursor string) ([]Artist, string, error) {
		reqURL := first
		if cursor != "" {
			reqURL = cursor
		}

		body, err := c.do(ctx, apiRequest{
			op:     "followed_artists",
			method: http.MethodGet,
			url:    reqURL,
		})
		if err != nil {
			if isNotFound(err) {
				return nil, "", nil
			}
			return nil, "", err
		}

		var envelope struct {
			Artists struct {
				Items []Artist `json:"items"`
				Next  string   `json:"next"`
			} `json:"artists"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, "", newAPIError(ErrMalformed, "followed_artists", "/me/following", 0, err)
		}
		return envelope.Artists.Items, envelope.Artists.Next, nil
	})

	return Collect(ctx, pager, 0)
}

// --- Releases ---

// ArtistAlbums returns an artist's most recent releases across all
// release groups, newest first, up to limit.
func (c *Client) ArtistAlbums(ctx context.Context, artistID string, limit int) ([]Album, error) {
	q := url.Values{}
	q.Set("include_groups", "album,single,appears_on,compilation")
	q.Set("limit", strconv.Itoa(limit))

	path := "/artists/" + artistID + "/albums"
	body, err := c.do(ctx, apiRequest{
		op:     "artist_albums",
		method: http.MethodGet,
		url:    c.baseURL + path + "?" + q.Encode(),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var page pagedResponse[Album]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, newAPIError(ErrMalformed, "artist_albums", path, 0, err)
	}
	return page.Items, nil
}

// Albums returns full album objects, tracks included, for the given
// ids. Requests are issued in batches of AlbumBatchSize.
func (c *Client) Albums(ctx context.Context, ids []string) ([]Album, error) {
	var out []Album
	for start := 0; start < len(ids); start += AlbumBatchSize {
		end := min(start+AlbumBatchSize, len(ids))

		q := url.Values{}
		q.Set("ids", strings.Join(ids[start:end], ","))

		body, err := c.do(ctx, apiRequest{
			op:     "albums",
			method: http.MethodGet,
			url:    c.baseURL + "/albums?" + q.Encode(),
		})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}

		var batch struct {
			Albums []Album `json:"albums"`
		}
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, newAPIError(ErrMalformed, "albums", "/albums", 0, err)
		}
		out = append(out, batch.Albums...)
	}
	return out, nil
}

// --- Playlists ---

// PlaylistTracks returns the track ids currently in the playlist, in
// playlist order. A 404 (deleted playlist) returns an empty list.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]string, error) {
	path := "/playlists/" + playlistID + "/tracks"

	pager := NewPager(func(ctx context.Context, cursor string) ([]string, string, error) {
		offset := 0
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil {
				return nil, "", newAPIError(ErrMalformed, "playlist_tracks", path, 0, fmt.Errorf("bad cursor %q: %w", cursor, err))
			}
			offset = n
		}

		q := url.Values{}
		q.Set("fields", "items(track(id)),next")
		q.Set("limit", strconv.Itoa(playlistTracksPageLimit))
		q.Set("offset", strconv.Itoa(offset))

		body, err := c.do(ctx, apiRequest{
			op:     "playlist_tracks",
			method: http.MethodGet,
			url:    c.baseURL + path + "?" + q.Encode(),
		})
		if err != nil {
			if isNotFound(err) {
				return nil, "", nil
			}
			return nil, "", err
		}

		var page struct {
			Items []struct {
				Track struct {
					ID string `json:"id"`
				} `json:"track"`
			} `json:"items"`
			Next string `json:"next"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, "", newAPIError(ErrMalformed, "playlist_tracks", path, 0, err)
		}

		ids := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			if item.Track.ID != "" {
				ids = append(ids, item.Track.ID)
			}
		}

		next := ""
		if page.Next != "" && len(page.Items) == playlistTracksPageLimit {
			next = strconv.Itoa(offset + len(page.Items))
		}
		return ids, next, nil
	})

	return Collect(ctx, pager, 0)
}

// CreatePlaylist creates a playlist for the user and returns its id.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	})
	if err != nil {
		return "", newAPIError(ErrPermanent, "create_playlist", "/users/"+userID+"/playlists", 0, err)
	}

	body, err := c.do(ctx, apiRequest{
		op:          "create_playlist",
		method:      http.MethodPost,
		url:         c.baseURL + "/users/" + userID + "/playlists",
		body:        payload,
		contentType: "application/json",
	})
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", newAPIError(ErrMalformed, "create_playlist", "/users/"+userID+"/playlists", 0, err)
	}
	if created.ID == "" {
		return "", newAPIError(ErrMalformed, "create_playlist", "/users/"+userID+"/playlists", 0, errors.New("empty playlist id"))
	}
	return created.ID, nil
}

// AddPlaylistTracks appends tracks to the playlist in batches of
// PlaylistBatchSize, preserving order.
func (c *Client) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	path := "/playlists/" + playlistID + "/tracks"
	for start := 0; start < len(trackIDs); start += PlaylistBatchSize {
		end := min(start+PlaylistBatchSize, len(trackIDs))

		payload, err := json.Marshal(map[string]any{
			"uris": trackURIs(trackIDs[start:end]),
		})
		if err != nil {
			return newAPIError(ErrPermanent, "add_tracks", path, 0, err)
		}

		if _, err := c.do(ctx, apiRequest{
			op:          "add_tracks",
			method:      http.MethodPost,
			url:         c.baseURL + path,
			body:        payload,
			contentType: "application/json",
		}); err != nil {
			return err
		}
		if c.metrics != nil {
			c.metrics.AddTracks(end - start)
		}
	}
	return nil
}

// RemovePlaylistTracks removes tracks from the playlist in batches of
// PlaylistBatchSize.
func (c *Client) RemovePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	path := "/playlists/" + playlistID + "/tracks"
	for start := 0; start < len(trackIDs); start += PlaylistBatchSize {
		end := min(start+PlaylistBatchSize, len(trackIDs))

		batch := trackIDs[start:end]
		tracks := make([]map[string]string, 0, len(batch))
		for _, uri := range trackURIs(batch) {
			tracks = append(tracks, map[string]string{"uri": uri})
		}
		payload, err := json.Marshal(map[string]any{"tracks": tracks})
		if err != nil {
			return newAPIError(ErrPermanent, "remove_tracks", path, 0, err)
		}

		if _, err := c.do(ctx, apiRequest{
			op:          "remove_tracks",
			method:      http.MethodDelete,
			url:         c.baseURL + path,
			body:        payload,
			contentType: "application/json",
		}); err != nil {
			return err
		}
		if c.metrics != nil {
			c.metrics.RemoveTracks(end - start)
		}
	}
	return nil
}

// UploadPlaylistCover sets the playlist's cover image. The payload is
// base64-encoded JPEG bytes, as the endpoint requires.
func (c *Client) UploadPlaylistCover(ctx context.Context, playlistID string, jpegBase64 []byte) error {
	_, err := c.do(ctx, apiRequest{
		op:          "upload_cover",
		method:      http.MethodPut,
		url:         c.baseURL + "/playlists/" + playlistID + "/images",
		body:        jpegBase64,
		contentType: "image/jpeg",
	})
	return err
}

// trackURIs converts bare track ids to playlist API URIs.
func trackURIs(ids []string) []string {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = "spotify:track:" + id
	}
	return uris
}

// isNotFound reports whether err is a permanent 404. Read operations
// treat missing resources as empty rather than failing the user.
func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
