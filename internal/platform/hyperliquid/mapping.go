package hyperliquid

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// Normalize maps a raw fill to the unified trade record. It has no side
// effects. Decimal fields are parsed from their string form; optional
// decimals that are empty on the wire become null.
func Normalize(wallet string, f Fill) (domain.TradeRecord, error) {
	price, err := requiredDecimal(f.Px)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("hyperliquid: fill %d: px: %w", f.Tid, err)
	}
	qty, err := requiredDecimal(f.Sz)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("hyperliquid: fill %d: sz: %w", f.Tid, err)
	}
	fee, err := optionalDecimal(f.Fee)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("hyperliquid: fill %d: fee: %w", f.Tid, err)
	}
	pnl, err := optionalDecimal(f.ClosedPnl)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("hyperliquid: fill %d: closedPnl: %w", f.Tid, err)
	}
	startPos, err := optionalDecimal(f.StartPosition)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("hyperliquid: fill %d: startPosition: %w", f.Tid, err)
	}

	rec := domain.TradeRecord{
		Platform:       domain.PlatformHyperliquid,
		WalletAddress:  wallet,
		TradeID:        f.Tid,
		Symbol:         f.Coin,
		Side:           mapSide(f.Side),
		Price:          price,
		Quantity:       qty,
		ExecutedAt:     time.UnixMilli(f.Time).UTC(),
		TxHash:         nonEmpty(f.Hash),
		OrderID:        f.Oid,
		Fee:            fee,
		FeeToken:       nonEmpty(f.FeeToken),
		RealizedPnL:    pnl,
		IsTaker:        f.Crossed,
		PositionBefore: startPos,
	}
	if f.Dir != "" {
		dir := strings.ToUpper(f.Dir)
		rec.Direction = &dir
	}
	return rec, nil
}

func mapSide(code string) domain.Side {
	switch code {
	case "B":
		return domain.SideBuy
	case "A":
		return domain.SideSell
	default:
		return domain.Side(code)
	}
}

func requiredDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func optionalDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
