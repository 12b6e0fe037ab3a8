package orderly

import (
	"strings"
	"time"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// Normalize maps a raw trade to the unified record. now stands in for the
// execution time when the row carries neither created_time nor timestamp.
func Normalize(wallet, accountID string, raw RawTrade, now time.Time) domain.TradeRecord {
	rec := domain.TradeRecord{
		Platform:      domain.PlatformOrderly,
		WalletAddress: wallet,
		AccountID:     accountID,
		TradeID:       firstNonZero(raw.TradeID, raw.ID),
		Symbol:        raw.Symbol,
		Side:          domain.Side(strings.ToUpper(raw.Side)),
		Price:         raw.ExecutedPrice,
		Quantity:      raw.ExecutedQuantity,
		OrderID:       raw.OrderID,
		Fee:           raw.Fee,
		FeeToken:      raw.FeeAsset,
		RealizedPnL:   raw.RealizedPnL,
	}
	if raw.IsMaker != nil {
		taker := !*raw.IsMaker
		rec.IsTaker = &taker
	}

	if ms := firstNonZero(raw.CreatedTime, raw.Timestamp); ms != 0 {
		rec.ExecutedAt = time.UnixMilli(ms).UTC()
	} else {
		rec.ExecutedAt = now.UTC()
	}
	return rec
}

func firstNonZero(vals ...*int64) int64 {
	for _, v := range vals {
		if v != nil && *v != 0 {
			return *v
		}
	}
	return 0
}
