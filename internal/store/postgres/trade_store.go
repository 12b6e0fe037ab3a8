package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/store"
)

// TradeStore implements domain.TradeInserter using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// InsertTrades writes batch in one multi-row statement. Rows whose key
// already exists are skipped; the count of rows actually written is
// returned. One pooled connection is held for the duration of the call.
func (s *TradeStore) InsertTrades(ctx context.Context, platform domain.Platform, batch []domain.TradeRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	tbl, err := store.TableFor(platform)
	if err != nil {
		return 0, fmt.Errorf("postgres: %w", err)
	}

	args := make([]any, 0, len(batch)*len(tbl.Columns))
	for _, rec := range batch {
		args = append(args, tbl.Row(rec, utc)...)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, tbl.InsertIgnore(len(batch), store.Dollar), args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert %s: %w", tbl.Name, err)
	}
	defer rows.Close()

	inserted := 0
	for rows.Next() {
		inserted++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("postgres: insert %s: %w", tbl.Name, err)
	}
	return inserted, nil
}

func utc(t time.Time) any { return t.UTC() }
