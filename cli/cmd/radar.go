package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/xomify/xomify/digest"
	"github.com/xomify/xomify/types"
)

// ReleaseRadarCommand returns the release-radar command.
func ReleaseRadarCommand() *cli.Command {
	return &cli.Command{
		Name:   "release-radar",
		Usage:  "Run the weekly release scan for all enrolled users",
		Flags:  DigestFlags(),
		Action: releaseRadarAction,
	}
}

func releaseRadarAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, c, types.DigestReleaseRadar)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}
	defer rt.close()

	runCtx, cancel := context.WithTimeout(ctx, rt.cfg.Digest.RunTimeout.Duration)
	defer cancel()

	r := &digest.ReleaseRadar{
		Store:   rt.store,
		Clients: rt.clients,
		Covers:  rt.covers,
		Config:  rt.digestConfig(),
		Log:     rt.logger,
		Metrics: rt.metrics,
	}
	report, err := r.Run(runCtx)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}

	rt.publishCompletion(ctx, report)
	return renderReport(c, report)
}
