// Package app wires the ingestion job together and runs it either once or
// on a cron schedule.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alanyoungcy/tradefetch/internal/config"
	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/pipeline"
)

// Options are the per-invocation settings taken from the command line.
type Options struct {
	Platforms []domain.Platform
	Wallet    string
	// Once ignores the configured schedule.
	Once bool
}

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		out:    os.Stdout,
	}
}

// SetOutput redirects the end-of-run summary table.
func (a *App) SetOutput(w io.Writer) { a.out = w }

// Run wires the dependencies and executes the job. It returns an error only
// when startup fails or a single run could not start.
func (a *App) Run(ctx context.Context, opts Options) error {
	a.logger.InfoContext(ctx, "starting tradefetch",
		slog.String("storage", a.cfg.Storage.Driver),
		slog.String("users", a.cfg.Users.Source),
		slog.String("schedule", a.cfg.Schedule),
		slog.Bool("once", opts.Once),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	runOpts := pipeline.RunOptions{Platforms: opts.Platforms, Wallet: opts.Wallet}
	if opts.Once || a.cfg.Schedule == "" {
		return a.RunOnce(ctx, deps.Orchestrator, runOpts)
	}
	return a.ScheduleMode(ctx, deps.Orchestrator, a.cfg.Schedule, runOpts)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
