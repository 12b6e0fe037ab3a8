package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// advanceCursorSQL never moves the watermark back: GREATEST skips a NULL
// candidate and keeps the later of two timestamps.
const advanceCursorSQL = `
	INSERT INTO fetch_cursor (
		wallet_address, platform, last_fetch_time, last_attempt_at, total_inserted, last_error
	) VALUES ($1, $2, $3, NOW(), $4, $5)
	ON CONFLICT (wallet_address, platform) DO UPDATE SET
		last_fetch_time = GREATEST(fetch_cursor.last_fetch_time, EXCLUDED.last_fetch_time),
		last_attempt_at = NOW(),
		total_inserted  = fetch_cursor.total_inserted + EXCLUDED.total_inserted,
		last_error      = EXCLUDED.last_error`

// CursorStore implements domain.CursorStore using PostgreSQL.
type CursorStore struct {
	pool *pgxpool.Pool
}

// NewCursorStore creates a new CursorStore backed by the given connection pool.
func NewCursorStore(pool *pgxpool.Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Get returns the cursor for (wallet, platform), or nil when the pair has
// never been attempted.
func (s *CursorStore) Get(ctx context.Context, wallet string, platform domain.Platform) (*domain.FetchCursor, error) {
	const query = `
		SELECT wallet_address, platform, last_fetch_time, last_attempt_at, total_inserted, last_error
		FROM fetch_cursor
		WHERE wallet_address = $1 AND platform = $2`

	var c domain.FetchCursor
	var platformName string
	err := s.pool.QueryRow(ctx, query, wallet, string(platform)).Scan(
		&c.WalletAddress, &platformName, &c.LastFetchTime, &c.LastAttemptAt, &c.TotalInserted, &c.LastError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get cursor %s/%s: %w", wallet, platform, err)
	}
	c.Platform = domain.Platform(platformName)
	if c.LastFetchTime != nil {
		t := c.LastFetchTime.UTC()
		c.LastFetchTime = &t
	}
	c.LastAttemptAt = c.LastAttemptAt.UTC()
	return &c, nil
}

// Advance upserts the cursor. The inserted count is added and the error
// replaced as given.
func (s *CursorStore) Advance(ctx context.Context, adv domain.CursorAdvance) error {
	_, err := s.pool.Exec(ctx, advanceCursorSQL,
		adv.WalletAddress, string(adv.Platform), adv.Watermark, adv.Inserted, adv.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: advance cursor %s/%s: %w", adv.WalletAddress, adv.Platform, err)
	}
	return nil
}
