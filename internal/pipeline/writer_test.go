package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

type recordingInserter struct {
	batches []int
	failAt  map[int]bool
	seen    map[int64]bool
}

func (r *recordingInserter) InsertTrades(_ context.Context, _ domain.Platform, batch []domain.TradeRecord) (int, error) {
	idx := len(r.batches)
	r.batches = append(r.batches, len(batch))
	if r.failAt[idx] {
		return 0, errors.New("deadlock detected")
	}
	if r.seen == nil {
		r.seen = make(map[int64]bool)
	}
	n := 0
	for _, rec := range batch {
		if !r.seen[rec.TradeID] {
			r.seen[rec.TradeID] = true
			n++
		}
	}
	return n, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func records(platform domain.Platform, n int, offset int64) []domain.TradeRecord {
	out := make([]domain.TradeRecord, n)
	for i := range out {
		out[i] = domain.TradeRecord{Platform: platform, TradeID: offset + int64(i)}
	}
	return out
}

func TestBatchWriter_SplitsIntoBatches(t *testing.T) {
	ins := &recordingInserter{}
	w := NewBatchWriter(ins, 500, discardLogger())

	n, err := w.Upsert(context.Background(), records(domain.PlatformHyperliquid, 1200, 0))
	require.NoError(t, err)
	assert.Equal(t, 1200, n)
	assert.Equal(t, []int{500, 500, 200}, ins.batches)
}

func TestBatchWriter_Idempotent(t *testing.T) {
	ins := &recordingInserter{}
	w := NewBatchWriter(ins, 10, discardLogger())
	recs := records(domain.PlatformOrderly, 25, 0)

	n, err := w.Upsert(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = w.Upsert(context.Background(), recs)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBatchWriter_FailedBatchDoesNotStopOthers(t *testing.T) {
	ins := &recordingInserter{failAt: map[int]bool{1: true}}
	w := NewBatchWriter(ins, 10, discardLogger())

	n, err := w.Upsert(context.Background(), records(domain.PlatformHyperliquid, 30, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.Equal(t, 20, n)
	assert.Equal(t, []int{10, 10, 10}, ins.batches)
}

func TestBatchWriter_GroupsByPlatform(t *testing.T) {
	ins := &recordingInserter{}
	w := NewBatchWriter(ins, 500, discardLogger())

	mixed := append(records(domain.PlatformOrderly, 3, 100), records(domain.PlatformHyperliquid, 2, 0)...)
	n, err := w.Upsert(context.Background(), mixed)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{2, 3}, ins.batches, "venue A first, then venue B")
}

func TestBatchWriter_UnknownPlatform(t *testing.T) {
	w := NewBatchWriter(&recordingInserter{}, 0, discardLogger())
	_, err := w.Upsert(context.Background(), records("binance", 1, 0))
	assert.Error(t, err)
}

func TestBatchWriter_Empty(t *testing.T) {
	ins := &recordingInserter{}
	n, err := NewBatchWriter(ins, 0, nil).Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, ins.batches)
}
