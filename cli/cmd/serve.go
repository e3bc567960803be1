package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xomify/xomify/httpapi"
	"github.com/xomify/xomify/log"
	"github.com/xomify/xomify/metrics"
	"github.com/xomify/xomify/types"
)

// ServeCommand returns the serve command. The HTTP API serves digest
// history and enrollment; digests run via the wrapped and release-radar
// commands.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the digest history and enrollment API",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}

	st, backend, err := buildStore(ctx, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}

	addr := cfg.Server.Addr
	if c.String("addr") != "" {
		addr = c.String("addr")
	}

	logger := log.NewLogger("serve", "")
	collector := metrics.NewCollector("serve", backend, "")
	api := httpapi.NewServer(st, collector)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", map[string]any{"addr": addr, "version": types.Version})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit(err.Error(), exitRunError)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return cli.Exit(err.Error(), exitRunError)
		}
		logger.Info("api stopped", nil)
	}
	return nil
}
