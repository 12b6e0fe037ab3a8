package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// TradeArchiver keeps a cold copy of the trades fetched for one wallet on
// one venue during a run. It returns the object path written.
type TradeArchiver interface {
	ArchiveTrades(ctx context.Context, runID string, platform Platform, wallet string, trades []TradeRecord) (string, error)
}
