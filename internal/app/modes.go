package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/pipeline"
)

// Runner executes one ingestion pass.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (domain.Run, error)
}

// RunOnce executes a single pass and prints the summary table.
func (a *App) RunOnce(ctx context.Context, r Runner, opts pipeline.RunOptions) error {
	run, err := r.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("app: run: %w", err)
	}
	if err := pipeline.WriteSummary(a.out, run.Stats); err != nil {
		a.logger.WarnContext(ctx, "writing summary failed", slog.String("error", err.Error()))
	}
	return nil
}

// ScheduleMode runs a pass on every tick of spec until ctx is cancelled. A
// tick that fires while the previous pass is still running is skipped.
func (a *App) ScheduleMode(ctx context.Context, r Runner, spec string, opts pipeline.RunOptions) error {
	clog := cronLogger{logger: a.logger.With(slog.String("component", "scheduler"))}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	_, err := c.AddFunc(spec, func() {
		if err := a.RunOnce(ctx, r, opts); err != nil {
			a.logger.ErrorContext(ctx, "scheduled run failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("app: schedule %q: %w", spec, err)
	}

	c.Start()
	a.logger.InfoContext(ctx, "scheduler started", slog.String("schedule", spec))

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	a.logger.Info("scheduler stopped")
	return ctx.Err()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err.Error())...)
}
