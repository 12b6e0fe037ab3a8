package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/store"
)

// TradeStore implements domain.TradeInserter using SQLite.
type TradeStore struct {
	db *sql.DB
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(db *sql.DB) *TradeStore {
	return &TradeStore{db: db}
}

// InsertTrades writes batch in one statement, skipping rows whose key
// already exists, and returns the count of rows actually written.
func (s *TradeStore) InsertTrades(ctx context.Context, platform domain.Platform, batch []domain.TradeRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	tbl, err := store.TableFor(platform)
	if err != nil {
		return 0, fmt.Errorf("sqlite: %w", err)
	}

	args := make([]any, 0, len(batch)*len(tbl.Columns))
	for _, rec := range batch {
		args = append(args, tbl.Row(rec, millis)...)
	}

	rows, err := s.db.QueryContext(ctx, tbl.InsertIgnore(len(batch), store.Question), args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert %s: %w", tbl.Name, err)
	}
	defer rows.Close()

	inserted := 0
	for rows.Next() {
		inserted++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sqlite: insert %s: %w", tbl.Name, err)
	}
	return inserted, nil
}
