// Package store holds the trade-table mapping shared by the SQL backends.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// Table describes where a venue's trades live and what makes a row unique.
type Table struct {
	Name     string
	Columns  []string
	Conflict []string
}

var (
	hyperliquidTable = Table{
		Name: "hyperliquid_trades",
		Columns: []string{
			"wallet_address", "trade_id", "tx_hash", "symbol", "order_id",
			"side", "direction", "price", "quantity", "fee", "fee_token",
			"realized_pnl", "is_taker", "position_before", "executed_at",
		},
		Conflict: []string{"wallet_address", "trade_id"},
	}
	orderlyTable = Table{
		Name: "orderly_trades",
		Columns: []string{
			"wallet_address", "account_id", "trade_id", "symbol", "order_id",
			"side", "price", "quantity", "fee", "fee_token",
			"realized_pnl", "is_taker", "executed_at",
		},
		Conflict: []string{"account_id", "trade_id"},
	}
)

// TableFor returns the trade table of a venue.
func TableFor(p domain.Platform) (Table, error) {
	switch p {
	case domain.PlatformHyperliquid:
		return hyperliquidTable, nil
	case domain.PlatformOrderly:
		return orderlyTable, nil
	default:
		return Table{}, fmt.Errorf("store: no trade table for platform %q", p)
	}
}

// Row returns rec's column values in t.Columns order. timeValue converts
// executed_at to the driver's representation.
func (t Table) Row(rec domain.TradeRecord, timeValue func(time.Time) any) []any {
	switch t.Name {
	case orderlyTable.Name:
		return []any{
			rec.WalletAddress, rec.AccountID, rec.TradeID, rec.Symbol, rec.OrderID,
			string(rec.Side), rec.Price, rec.Quantity, rec.Fee, rec.FeeToken,
			rec.RealizedPnL, rec.IsTaker, timeValue(rec.ExecutedAt),
		}
	default:
		return []any{
			rec.WalletAddress, rec.TradeID, rec.TxHash, rec.Symbol, rec.OrderID,
			string(rec.Side), rec.Direction, rec.Price, rec.Quantity, rec.Fee, rec.FeeToken,
			rec.RealizedPnL, rec.IsTaker, rec.PositionBefore, timeValue(rec.ExecutedAt),
		}
	}
}

// InsertIgnore builds a multi-row INSERT of n rows that skips conflicting
// keys and returns the trade_id of every row actually written. placeholder
// renders the 1-based i-th bind parameter.
func (t Table) InsertIgnore(n int, placeholder func(i int) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", t.Name, strings.Join(t.Columns, ", "))
	arg := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range t.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholder(arg))
			arg++
		}
		b.WriteByte(')')
	}
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING RETURNING trade_id", strings.Join(t.Conflict, ", "))
	return b.String()
}

// Dollar renders PostgreSQL-style placeholders.
func Dollar(i int) string { return fmt.Sprintf("$%d", i) }

// Question renders SQLite-style placeholders.
func Question(int) string { return "?" }
