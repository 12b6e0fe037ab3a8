package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies a trading venue.
type Platform string

const (
	PlatformHyperliquid Platform = "hyperliquid"
	PlatformOrderly     Platform = "orderly"
)

// AllPlatforms returns every supported venue in processing order.
func AllPlatforms() []Platform {
	return []Platform{PlatformHyperliquid, PlatformOrderly}
}

// ParsePlatform converts a user supplied name into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformHyperliquid, PlatformOrderly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q (valid: hyperliquid, orderly)", s)
	}
}

// Side is the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord is a single executed fill normalized across venues. The tuple
// (Platform, WalletAddress, TradeID) is unique; for Orderly the store key is
// (AccountID, TradeID).
type TradeRecord struct {
	Platform      Platform        `json:"platform"`
	WalletAddress string          `json:"wallet_address"`
	AccountID     string          `json:"account_id,omitempty"`
	TradeID       int64           `json:"trade_id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	ExecutedAt    time.Time       `json:"executed_at"`

	TxHash         *string             `json:"tx_hash,omitempty"`
	OrderID        *int64              `json:"order_id,omitempty"`
	Direction      *string             `json:"direction,omitempty"`
	Fee            decimal.NullDecimal `json:"fee"`
	FeeToken       *string             `json:"fee_token,omitempty"`
	RealizedPnL    decimal.NullDecimal `json:"realized_pnl"`
	IsTaker        *bool               `json:"is_taker,omitempty"`
	PositionBefore decimal.NullDecimal `json:"position_before"`
}

// LatestExecutedAt returns the maximum ExecutedAt among trades. The boolean
// is false when trades is empty.
func LatestExecutedAt(trades []TradeRecord) (time.Time, bool) {
	if len(trades) == 0 {
		return time.Time{}, false
	}
	latest := trades[0].ExecutedAt
	for _, t := range trades[1:] {
		if t.ExecutedAt.After(latest) {
			latest = t.ExecutedAt
		}
	}
	return latest, true
}

// ShortAddress trims a wallet address for log output.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:10] + "..."
}
