package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Start records a run as running.
func (s *RunStore) Start(ctx context.Context, run domain.Run) error {
	platforms := make([]string, len(run.PlatformFilter))
	for i, p := range run.PlatformFilter {
		platforms[i] = string(p)
	}

	const query = `
		INSERT INTO fetch_runs (id, started_at, platforms, wallet_filter, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`
	if _, err := s.pool.Exec(ctx, query, run.ID, run.StartedAt, platforms, run.WalletFilter, string(run.Status)); err != nil {
		return fmt.Errorf("postgres: start run %s: %w", run.ID, err)
	}
	return nil
}

// Finish stores the final status and counters of a run.
func (s *RunStore) Finish(ctx context.Context, run domain.Run) error {
	fetched, err := json.Marshal(run.Stats.Fetched)
	if err != nil {
		return fmt.Errorf("postgres: marshal fetched counts: %w", err)
	}
	inserted, err := json.Marshal(run.Stats.Inserted)
	if err != nil {
		return fmt.Errorf("postgres: marshal inserted counts: %w", err)
	}

	const query = `
		UPDATE fetch_runs
		SET finished_at = $2, status = $3, wallets = $4, fetched = $5, inserted = $6, errors = $7, error = $8
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, string(run.Status), run.Stats.WalletsProcessed,
		fetched, inserted, run.Stats.Errors, run.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}
