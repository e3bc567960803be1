package config

import (
	"fmt"
	"time"
)

// Config represents a xomify.yaml configuration file.
// All values are optional and act as defaults for CLI flags.
// CLI flags always override config values.
type Config struct {
	Spotify SpotifyConfig `yaml:"spotify"`
	Store   StoreConfig   `yaml:"store"`
	Digest  DigestConfig  `yaml:"digest"`
	Assets  AssetsConfig  `yaml:"assets"`
	Adapter AdapterConfig `yaml:"adapter"`
	Server  ServerConfig  `yaml:"server"`
}

// SpotifyConfig holds upstream API settings.
// Client credentials can be given inline or as SSM parameter names; when
// both are present the inline values win.
type SpotifyConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccountsURL string `yaml:"accounts_url"`

	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	ClientIDParam     string `yaml:"client_id_param"`
	ClientSecretParam string `yaml:"client_secret_param"`

	Timeout Duration `yaml:"timeout"`
	Retries *int     `yaml:"retries,omitempty"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Backend      string `yaml:"backend"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsersTable   string `yaml:"users_table"`
	HistoryTable string `yaml:"history_table"`
}

// DigestConfig holds aggregation and batch tuning knobs.
type DigestConfig struct {
	TopTracks        int      `yaml:"top_tracks"`
	TopArtists       int      `yaml:"top_artists"`
	TopGenres        int      `yaml:"top_genres"`
	FetchLimit       int      `yaml:"fetch_limit"`
	LookbackDays     int      `yaml:"lookback_days"`
	ArtistAlbumLimit int      `yaml:"artist_album_limit"`
	Concurrency      int      `yaml:"concurrency"`
	RunTimeout       Duration `yaml:"run_timeout"`
}

// AssetsConfig points at the S3 bucket holding playlist cover art.
type AssetsConfig struct {
	Bucket   string `yaml:"bucket"`
	CoverKey string `yaml:"cover_key"`
}

// AdapterConfig holds completion-notification defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// ServerConfig holds HTTP API settings for the serve subcommand.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Defaults for every knob the config file may omit. Fetch and batch limits
// track the upstream API's documented maximums.
const (
	DefaultBaseURL     = "https://api.spotify.com/v1"
	DefaultAccountsURL = "https://accounts.spotify.com"

	DefaultTopTracks        = 50
	DefaultTopArtists       = 50
	DefaultTopGenres        = 10
	DefaultFetchLimit       = 50
	DefaultLookbackDays     = 7
	DefaultArtistAlbumLimit = 10
	DefaultConcurrency      = 10

	DefaultRunTimeout = 10 * time.Minute
	DefaultTimeout    = 30 * time.Second

	DefaultServerAddr = ":8080"
)

// ApplyDefaults fills any zero-valued knobs with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Spotify.BaseURL == "" {
		c.Spotify.BaseURL = DefaultBaseURL
	}
	if c.Spotify.AccountsURL == "" {
		c.Spotify.AccountsURL = DefaultAccountsURL
	}
	if c.Spotify.Timeout.Duration == 0 {
		c.Spotify.Timeout.Duration = DefaultTimeout
	}
	if c.Digest.TopTracks == 0 {
		c.Digest.TopTracks = DefaultTopTracks
	}
	if c.Digest.TopArtists == 0 {
		c.Digest.TopArtists = DefaultTopArtists
	}
	if c.Digest.TopGenres == 0 {
		c.Digest.TopGenres = DefaultTopGenres
	}
	if c.Digest.FetchLimit == 0 {
		c.Digest.FetchLimit = DefaultFetchLimit
	}
	if c.Digest.LookbackDays == 0 {
		c.Digest.LookbackDays = DefaultLookbackDays
	}
	if c.Digest.ArtistAlbumLimit == 0 {
		c.Digest.ArtistAlbumLimit = DefaultArtistAlbumLimit
	}
	if c.Digest.Concurrency == 0 {
		c.Digest.Concurrency = DefaultConcurrency
	}
	if c.Digest.RunTimeout.Duration == 0 {
		c.Digest.RunTimeout.Duration = DefaultRunTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// Validate checks cross-field constraints that YAML decoding cannot.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "memory":
	case "dynamo":
		if c.Store.UsersTable == "" || c.Store.HistoryTable == "" {
			return fmt.Errorf("store backend %q requires users_table and history_table", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	hasInline := c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
	hasParams := c.Spotify.ClientIDParam != "" && c.Spotify.ClientSecretParam != ""
	if !hasInline && !hasParams {
		return fmt.Errorf("spotify credentials required: set client_id/client_secret or client_id_param/client_secret_param")
	}

	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("unknown adapter type %q", c.Adapter.Type)
	}
	return nil
}
