package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// RunStore implements domain.RunStore using SQLite.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Start records a run as running.
func (s *RunStore) Start(ctx context.Context, run domain.Run) error {
	platforms := make([]string, len(run.PlatformFilter))
	for i, p := range run.PlatformFilter {
		platforms[i] = string(p)
	}
	const query = `
		INSERT INTO fetch_runs (id, started_at, platforms, wallet_filter, status)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)`
	if _, err := s.db.ExecContext(ctx, query,
		run.ID, run.StartedAt.UnixMilli(), strings.Join(platforms, ","), run.WalletFilter, string(run.Status),
	); err != nil {
		return fmt.Errorf("sqlite: start run %s: %w", run.ID, err)
	}
	return nil
}

// Finish stores the final status and counters of a run.
func (s *RunStore) Finish(ctx context.Context, run domain.Run) error {
	fetched, err := json.Marshal(run.Stats.Fetched)
	if err != nil {
		return fmt.Errorf("sqlite: marshal fetched counts: %w", err)
	}
	inserted, err := json.Marshal(run.Stats.Inserted)
	if err != nil {
		return fmt.Errorf("sqlite: marshal inserted counts: %w", err)
	}
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UnixMilli()
	}

	const query = `
		UPDATE fetch_runs
		SET finished_at = ?, status = ?, wallets = ?, fetched = ?, inserted = ?, errors = ?, error = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		finished, string(run.Status), run.Stats.WalletsProcessed,
		string(fetched), string(inserted), run.Stats.Errors, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: finish run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sqlite: finish run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}
