package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// multipartThreshold is the payload size above which snapshots are streamed
// through the multipart uploader.
const multipartThreshold = minPartSize

// TradeArchiver implements domain.TradeArchiver. Each call writes the trades
// fetched for one wallet on one venue during one run as a JSONL object:
//
//	<prefix>/snapshots/hyperliquid/0xabc.../<run id>.jsonl
type TradeArchiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewTradeArchiver creates a TradeArchiver writing through w under prefix.
func NewTradeArchiver(w domain.BlobWriter, prefix string) *TradeArchiver {
	return &TradeArchiver{writer: w, prefix: strings.Trim(prefix, "/")}
}

// ArchiveTrades uploads trades and returns the object key. An empty slice
// writes nothing and returns an empty key.
func (a *TradeArchiver) ArchiveTrades(
	ctx context.Context,
	runID string,
	platform domain.Platform,
	wallet string,
	trades []domain.TradeRecord,
) (string, error) {
	if len(trades) == 0 {
		return "", nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s trades: %w", platform, err)
	}

	key := snapshotPath(a.prefix, runID, platform, wallet)
	if int64(len(buf)) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s trades: %w", platform, err)
	}
	return key, nil
}

// snapshotPath builds the object key for one (run, platform, wallet) triple.
func snapshotPath(prefix, runID string, platform domain.Platform, wallet string) string {
	key := path.Join("snapshots", string(platform), strings.ToLower(wallet), runID+".jsonl")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.TradeArchiver = (*TradeArchiver)(nil)
