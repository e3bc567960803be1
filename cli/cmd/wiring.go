package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/xomify/xomify/adapter"
	redisadapter "github.com/xomify/xomify/adapter/redis"
	"github.com/xomify/xomify/adapter/webhook"
	"github.com/xomify/xomify/assets"
	"github.com/xomify/xomify/config"
	"github.com/xomify/xomify/digest"
	"github.com/xomify/xomify/log"
	"github.com/xomify/xomify/metrics"
	"github.com/xomify/xomify/secrets"
	"github.com/xomify/xomify/spotify"
	"github.com/xomify/xomify/store"
	"github.com/xomify/xomify/types"
)

// runtime bundles everything a digest command needs. Built once per
// invocation; the adapter may be nil when notifications are not
// configured.
type runtime struct {
	runID   string
	cfg     *config.Config
	store   store.Store
	clients digest.ClientFactory
	covers  digest.CoverSource
	logger  *log.Logger
	metrics *metrics.Collector
	adapter adapter.Adapter
}

func (r *runtime) close() {
	if r.adapter != nil {
		_ = r.adapter.Close()
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRuntime wires the store, credentials, client factory, cover
// source, and adapter from config.
func buildRuntime(ctx context.Context, c *cli.Context, kind types.DigestKind) (*runtime, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := log.NewLogger(runID, kind)

	st, backend, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	creds, err := resolveCredentials(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	collector := metrics.NewCollector(string(kind), backend, runID)

	// One governor for the whole run: a 429 on any user's client holds
	// every client back.
	governor := spotify.NewGovernor()
	factory := func(ctx context.Context, user types.User) (digest.SpotifyAPI, error) {
		client, err := spotify.NewClient(spotify.Options{
			BaseURL:      cfg.Spotify.BaseURL,
			AccountsURL:  cfg.Spotify.AccountsURL,
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Timeout:      cfg.Spotify.Timeout.Duration,
			Retries:      cfg.Spotify.Retries,
			Governor:     governor,
			Metrics:      collector,
		})
		if err != nil {
			return nil, err
		}
		if err := client.Authenticate(ctx, user.RefreshToken); err != nil {
			return nil, err
		}
		return client, nil
	}

	var covers digest.CoverSource
	if cfg.Assets.Bucket != "" {
		c, err := assets.NewCovers(ctx, cfg.Store.Region, cfg.Assets.Bucket)
		if err != nil {
			return nil, fmt.Errorf("init cover source: %w", err)
		}
		covers = c
	}

	notify, err := buildAdapter(cfg)
	if err != nil {
		return nil, err
	}

	return &runtime{
		runID:   runID,
		cfg:     cfg,
		store:   st,
		clients: factory,
		covers:  covers,
		logger:  logger,
		metrics: collector,
		adapter: notify,
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, string, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemory(), "memory", nil
	case "dynamo":
		d, err := store.NewDynamo(ctx, store.DynamoConfig{
			UsersTable:   cfg.Store.UsersTable,
			HistoryTable: cfg.Store.HistoryTable,
			Region:       cfg.Store.Region,
			Endpoint:     cfg.Store.Endpoint,
		})
		if err != nil {
			return nil, "", fmt.Errorf("init dynamo store: %w", err)
		}
		return d, "dynamo", nil
	default:
		return nil, "", fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// resolveCredentials prefers inline credentials; deployments reference
// SSM parameters instead.
func resolveCredentials(ctx context.Context, cfg *config.Config) (secrets.Credentials, error) {
	var source secrets.Source
	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret != "" {
		source = secrets.Static{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
		}
	} else {
		ssm, err := secrets.NewSSM(ctx, cfg.Store.Region, cfg.Spotify.ClientIDParam, cfg.Spotify.ClientSecretParam)
		if err != nil {
			return secrets.Credentials{}, err
		}
		source = ssm
	}
	return source.Credentials(ctx)
}

func buildAdapter(cfg *config.Config) (adapter.Adapter, error) {
	switch cfg.Adapter.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.Adapter.URL,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Adapter.Retries, webhook.DefaultRetries),
		})
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     cfg.Adapter.URL,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Adapter.Retries, redisadapter.DefaultRetries),
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", cfg.Adapter.Type)
	}
}

func retriesOrDefault(retries *int, def int) int {
	if retries != nil {
		return *retries
	}
	return def
}

func (r *runtime) digestConfig() digest.Config {
	return digest.Config{
		TopTracks:        r.cfg.Digest.TopTracks,
		TopArtists:       r.cfg.Digest.TopArtists,
		TopGenres:        r.cfg.Digest.TopGenres,
		FetchLimit:       r.cfg.Digest.FetchLimit,
		LookbackDays:     r.cfg.Digest.LookbackDays,
		ArtistAlbumLimit: r.cfg.Digest.ArtistAlbumLimit,
		Concurrency:      r.cfg.Digest.Concurrency,
		CoverKey:         r.cfg.Assets.CoverKey,
		RunID:            r.runID,
	}
}

// publishCompletion sends the completion event when an adapter is
// configured. Publish failures are logged, not fatal; the digest
// already succeeded.
func (r *runtime) publishCompletion(ctx context.Context, report *types.RunReport) {
	if r.adapter == nil {
		return
	}
	event := &adapter.DigestCompletedEvent{
		EventType:  adapter.EventTypeDigestCompleted,
		RunID:      report.RunID,
		Kind:       string(report.Kind),
		PeriodKey:  report.PeriodKey,
		Succeeded:  len(report.Succeeded),
		Failed:     len(report.Failures),
		Timestamp:  report.StartedAt.Add(report.Duration).UTC().Format(time.RFC3339),
		DurationMs: report.Duration.Milliseconds(),
	}
	if err := r.adapter.Publish(ctx, event); err != nil {
		r.logger.Warn("completion event publish failed", map[string]any{"error": err.Error()})
	}
}
