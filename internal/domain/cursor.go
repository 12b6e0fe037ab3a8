package domain

import "time"

// FetchCursor tracks incremental fetch progress for one wallet on one venue.
type FetchCursor struct {
	WalletAddress string
	Platform      Platform
	// LastFetchTime is the watermark: the latest executed_at seen by a
	// successful run. Nil means the pair was never fetched successfully.
	LastFetchTime *time.Time
	LastAttemptAt time.Time
	TotalInserted int64
	LastError     *string
}

// CursorAdvance describes a single cursor update.
type CursorAdvance struct {
	WalletAddress string
	Platform      Platform
	// Watermark replaces the stored watermark only when non-nil.
	Watermark *time.Time
	// Inserted is added to the cumulative inserted count.
	Inserted int64
	// Error replaces the stored error unconditionally; nil clears it.
	Error *string
}
