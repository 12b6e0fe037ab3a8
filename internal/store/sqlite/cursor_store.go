package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// CursorStore implements domain.CursorStore using SQLite.
type CursorStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(db *sql.DB) *CursorStore {
	return &CursorStore{db: db, now: time.Now}
}

// Get returns the cursor for (wallet, platform), or nil when absent.
func (s *CursorStore) Get(ctx context.Context, wallet string, platform domain.Platform) (*domain.FetchCursor, error) {
	const query = `
		SELECT last_fetch_time, last_attempt_at, total_inserted, last_error
		FROM fetch_cursor
		WHERE wallet_address = ? AND platform = ?`

	var (
		watermark sql.NullInt64
		attempt   int64
		lastErr   sql.NullString
		c         = domain.FetchCursor{WalletAddress: wallet, Platform: platform}
	)
	err := s.db.QueryRowContext(ctx, query, wallet, string(platform)).Scan(&watermark, &attempt, &c.TotalInserted, &lastErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get cursor %s/%s: %w", wallet, platform, err)
	}
	if watermark.Valid {
		t := fromMillis(watermark.Int64)
		c.LastFetchTime = &t
	}
	c.LastAttemptAt = fromMillis(attempt)
	if lastErr.Valid {
		c.LastError = &lastErr.String
	}
	return &c, nil
}

// Advance upserts the cursor. A NULL or older candidate never replaces the
// stored watermark.
func (s *CursorStore) Advance(ctx context.Context, adv domain.CursorAdvance) error {
	const query = `
		INSERT INTO fetch_cursor (
			wallet_address, platform, last_fetch_time, last_attempt_at, total_inserted, last_error
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (wallet_address, platform) DO UPDATE SET
			last_fetch_time = CASE
				WHEN excluded.last_fetch_time IS NULL THEN fetch_cursor.last_fetch_time
				WHEN fetch_cursor.last_fetch_time IS NULL THEN excluded.last_fetch_time
				WHEN excluded.last_fetch_time > fetch_cursor.last_fetch_time THEN excluded.last_fetch_time
				ELSE fetch_cursor.last_fetch_time
			END,
			last_attempt_at = excluded.last_attempt_at,
			total_inserted  = fetch_cursor.total_inserted + excluded.total_inserted,
			last_error      = excluded.last_error`

	var watermark any
	if adv.Watermark != nil {
		watermark = adv.Watermark.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, query,
		adv.WalletAddress, string(adv.Platform), watermark, s.now().UnixMilli(), adv.Inserted, adv.Error,
	)
	if err != nil {
		return fmt.Errorf("sqlite: advance cursor %s/%s: %w", adv.WalletAddress, adv.Platform, err)
	}
	return nil
}
