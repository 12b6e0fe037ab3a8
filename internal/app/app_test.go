package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/config"
	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRunner struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, _ pipeline.RunOptions) (domain.Run, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	stats := domain.NewRunStats()
	stats.WalletsProcessed = 3
	stats.Inserted[domain.PlatformHyperliquid] = 12
	return domain.Run{ID: "run-1", Status: domain.RunStatusCompleted, Stats: stats}, f.err
}

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	usersFile := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(usersFile, []byte("users: []\n"), 0o600))

	cfg := config.Defaults()
	cfg.Storage.Driver = "sqlite"
	cfg.SQLite.Path = filepath.Join(dir, "trades.db")
	cfg.Users.Source = "file"
	cfg.Users.File = usersFile
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestRunOnce_WritesSummary(t *testing.T) {
	var out bytes.Buffer
	a := New(localConfig(t), discardLogger())
	a.SetOutput(&out)

	require.NoError(t, a.RunOnce(context.Background(), &fakeRunner{}, pipeline.RunOptions{}))
	assert.Contains(t, out.String(), "12")
}

func TestRunOnce_StartFailure(t *testing.T) {
	a := New(localConfig(t), discardLogger())
	a.SetOutput(io.Discard)

	err := a.RunOnce(context.Background(), &fakeRunner{err: domain.ErrLockHeld}, pipeline.RunOptions{})
	require.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestScheduleMode_InvalidSpec(t *testing.T) {
	a := New(localConfig(t), discardLogger())
	err := a.ScheduleMode(context.Background(), &fakeRunner{}, "not a schedule", pipeline.RunOptions{})
	require.Error(t, err)
}

func TestScheduleMode_StopsOnCancel(t *testing.T) {
	a := New(localConfig(t), discardLogger())
	a.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.ScheduleMode(ctx, &fakeRunner{}, "@every 1h", pipeline.RunOptions{})
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestWire_LocalStack(t *testing.T) {
	cfg := localConfig(t)
	deps, cleanup, err := Wire(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, deps.Orchestrator)
	require.Len(t, deps.Fetchers, 2)
	assert.Equal(t, domain.PlatformHyperliquid, deps.Fetchers[0].Platform())
	assert.Equal(t, domain.PlatformOrderly, deps.Fetchers[1].Platform())
	assert.Nil(t, deps.LockManager)
	assert.Nil(t, deps.Archiver)
	assert.Nil(t, deps.Notifier)

	run, err := deps.Orchestrator.Run(context.Background(), pipeline.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Zero(t, run.Stats.WalletsProcessed)
}

func TestApp_RunOnceEndToEnd(t *testing.T) {
	var out bytes.Buffer
	a := New(localConfig(t), discardLogger())
	a.SetOutput(&out)
	defer a.Close()

	require.NoError(t, a.Run(context.Background(), Options{Once: true}))
	assert.NotEmpty(t, out.String())
}
