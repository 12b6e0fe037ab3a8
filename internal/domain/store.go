package domain

import "context"

// TradeInserter writes one batch of trades for a single venue with
// insert-or-ignore semantics and reports how many rows were new.
type TradeInserter interface {
	InsertTrades(ctx context.Context, platform Platform, batch []TradeRecord) (int, error)
}

// CursorStore persists fetch cursors.
type CursorStore interface {
	// Get returns the cursor for the pair, or nil if it was never attempted.
	Get(ctx context.Context, wallet string, platform Platform) (*FetchCursor, error)
	// Advance upserts the cursor row.
	Advance(ctx context.Context, adv CursorAdvance) error
}

// RunStore persists run history.
type RunStore interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, run Run) error
}
