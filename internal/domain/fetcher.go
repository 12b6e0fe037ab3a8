package domain

import (
	"context"
	"time"
)

// FetchRequest asks a venue for every trade of a user in [Start, End).
type FetchRequest struct {
	User  User
	Start time.Time
	End   time.Time
}

// TradeFetcher retrieves the complete trade history of a wallet on a single
// venue over a time range.
type TradeFetcher interface {
	Platform() Platform
	// CanFetch reports whether the user carries what this venue needs.
	CanFetch(user User) bool
	// FetchTrades returns the normalized trades in the requested range. An
	// error wrapping ErrIncompleteFetch means some part of the range could
	// not be retrieved; the trades that were retrieved are still returned
	// alongside it. An error wrapping only ErrSkippedRecords means the whole
	// range was read but some records could not be normalized.
	FetchTrades(ctx context.Context, req FetchRequest) ([]TradeRecord, error)
}
