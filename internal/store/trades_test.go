package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

func TestInsertIgnore_Postgres(t *testing.T) {
	tbl, err := TableFor(domain.PlatformOrderly)
	require.NoError(t, err)

	q := tbl.InsertIgnore(2, Dollar)
	assert.Contains(t, q, "INSERT INTO orderly_trades (wallet_address, account_id, trade_id,")
	assert.Contains(t, q, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13), ($14,")
	assert.Contains(t, q, "$26)")
	assert.NotContains(t, q, "$27")
	assert.Contains(t, q, "ON CONFLICT (account_id, trade_id) DO NOTHING RETURNING trade_id")
}

func TestInsertIgnore_SQLite(t *testing.T) {
	tbl, err := TableFor(domain.PlatformHyperliquid)
	require.NoError(t, err)

	q := tbl.InsertIgnore(1, Question)
	assert.Contains(t, q, "INSERT INTO hyperliquid_trades")
	assert.Contains(t, q, "ON CONFLICT (wallet_address, trade_id)")
	assert.NotContains(t, q, "$")
}

func TestRowMatchesColumns(t *testing.T) {
	rec := domain.TradeRecord{
		WalletAddress: "0xabc",
		AccountID:     "acct",
		TradeID:       9,
		Side:          domain.SideBuy,
		Price:         decimal.RequireFromString("1.5"),
		ExecutedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	ms := func(t time.Time) any { return t.UnixMilli() }
	for _, p := range domain.AllPlatforms() {
		tbl, err := TableFor(p)
		require.NoError(t, err)
		row := tbl.Row(rec, ms)
		require.Len(t, row, len(tbl.Columns), string(p))
		assert.Equal(t, rec.ExecutedAt.UnixMilli(), row[len(row)-1])
		assert.Equal(t, "BUY", row[indexOf(tbl.Columns, "side")])
		assert.Equal(t, int64(9), row[indexOf(tbl.Columns, "trade_id")])
	}
}

func TestTableForUnknown(t *testing.T) {
	_, err := TableFor("binance")
	assert.Error(t, err)
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
