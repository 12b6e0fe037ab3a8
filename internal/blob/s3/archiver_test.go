package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

type putCall struct {
	path        string
	body        []byte
	contentType string
	multipart   bool
}

type memWriter struct {
	calls []putCall
	err   error
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, _ := io.ReadAll(data)
	m.calls = append(m.calls, putCall{path: path, body: b, contentType: contentType})
	return nil
}

func (m *memWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	if m.err != nil {
		return m.err
	}
	b, _ := io.ReadAll(data)
	m.calls = append(m.calls, putCall{path: path, body: b, multipart: true})
	return nil
}

func sampleTrade(id int64) domain.TradeRecord {
	return domain.TradeRecord{
		Platform:      domain.PlatformHyperliquid,
		WalletAddress: "0xAbC0000000000000000000000000000000000001",
		TradeID:       id,
		Symbol:        "BTC",
		Side:          domain.SideBuy,
		Price:         decimal.RequireFromString("65000.5"),
		Quantity:      decimal.RequireFromString("0.01"),
		ExecutedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSnapshotPath(t *testing.T) {
	assert.Equal(t,
		"snapshots/orderly/0xabc/run-1.jsonl",
		snapshotPath("", "run-1", domain.PlatformOrderly, "0xABC"))
	assert.Equal(t,
		"tradefetch/snapshots/hyperliquid/0xabc/run-1.jsonl",
		snapshotPath("tradefetch", "run-1", domain.PlatformHyperliquid, "0xabc"))
}

func TestArchiveTrades_WritesJSONL(t *testing.T) {
	w := &memWriter{}
	a := NewTradeArchiver(w, "/archive/")

	trades := []domain.TradeRecord{sampleTrade(1), sampleTrade(2)}
	key, err := a.ArchiveTrades(context.Background(), "run-1", domain.PlatformHyperliquid, trades[0].WalletAddress, trades)
	require.NoError(t, err)

	assert.Equal(t, "archive/snapshots/hyperliquid/0xabc0000000000000000000000000000000000001/run-1.jsonl", key)
	require.Len(t, w.calls, 1)
	assert.Equal(t, jsonlContentType, w.calls[0].contentType)
	assert.False(t, w.calls[0].multipart)

	var lines []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(w.calls[0].body))
	for sc.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		lines = append(lines, row)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "65000.5", lines[0]["price"])
	assert.EqualValues(t, 2, lines[1]["trade_id"])
}

func TestArchiveTrades_EmptyIsNoop(t *testing.T) {
	w := &memWriter{}
	key, err := NewTradeArchiver(w, "").ArchiveTrades(context.Background(), "run-1", domain.PlatformOrderly, "0xabc", nil)
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, w.calls)
}

func TestArchiveTrades_LargeSnapshotUsesMultipart(t *testing.T) {
	w := &memWriter{}
	trade := sampleTrade(1)
	trade.Symbol = strings.Repeat("X", 1024)
	trades := make([]domain.TradeRecord, 6000)
	for i := range trades {
		trades[i] = trade
	}

	_, err := NewTradeArchiver(w, "").ArchiveTrades(context.Background(), "run-1", domain.PlatformHyperliquid, "0xabc", trades)
	require.NoError(t, err)
	require.Len(t, w.calls, 1)
	assert.True(t, w.calls[0].multipart)
}

func TestArchiveTrades_WrapsWriterError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewTradeArchiver(&memWriter{err: boom}, "").
		ArchiveTrades(context.Background(), "run-1", domain.PlatformHyperliquid, "0xabc", []domain.TradeRecord{sampleTrade(1)})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s3blob: archive hyperliquid trades")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("https://minio:9000", false))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("localhost:9000", false))
	assert.Equal(t, "HTTPS://e2.example.com", normaliseEndpoint("HTTPS://e2.example.com", false))
	assert.Equal(t, "https://e2.example.com", normaliseEndpoint("e2.example.com", true))
}
