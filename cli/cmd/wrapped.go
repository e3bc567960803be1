package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/xomify/xomify/cli/render"
	"github.com/xomify/xomify/digest"
	"github.com/xomify/xomify/types"
)

// Exit codes for the digest commands.
const (
	exitSuccess  = 0
	exitRunError = 1
	exitPartial  = 2
)

// WrappedCommand returns the wrapped command.
func WrappedCommand() *cli.Command {
	return &cli.Command{
		Name:   "wrapped",
		Usage:  "Run the monthly wrapped digest for all enrolled users",
		Flags:  DigestFlags(),
		Action: wrappedAction,
	}
}

func wrappedAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, c, types.DigestWrapped)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}
	defer rt.close()

	runCtx, cancel := context.WithTimeout(ctx, rt.cfg.Digest.RunTimeout.Duration)
	defer cancel()

	w := &digest.Wrapped{
		Store:   rt.store,
		Clients: rt.clients,
		Covers:  rt.covers,
		Config:  rt.digestConfig(),
		Log:     rt.logger,
		Metrics: rt.metrics,
	}
	report, err := w.Run(runCtx)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}

	rt.publishCompletion(ctx, report)
	return renderReport(c, report)
}

// renderReport prints the run report and maps partial failure onto the
// exit code.
func renderReport(c *cli.Context, report *types.RunReport) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}
	if err := r.Render(report); err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}
	if len(report.Failures) > 0 {
		return cli.Exit("", exitPartial)
	}
	return nil
}
