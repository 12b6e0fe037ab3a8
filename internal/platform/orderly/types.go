package orderly

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// RawTrade is one row of GET /v1/trades. Numeric fields are accepted either
// quoted or bare, integer fields also in float notation, and is_maker as a
// bool or 0/1.
type RawTrade struct {
	ID               *int64              `json:"id"`
	TradeID          *int64              `json:"trade_id"`
	Symbol           string              `json:"symbol"`
	OrderID          *int64              `json:"order_id"`
	Side             string              `json:"side"`
	ExecutedPrice    decimal.Decimal     `json:"executed_price"`
	ExecutedQuantity decimal.Decimal     `json:"executed_quantity"`
	Fee              decimal.NullDecimal `json:"fee"`
	FeeAsset         *string             `json:"fee_asset"`
	RealizedPnL      decimal.NullDecimal `json:"realized_pnl"`
	IsMaker          *bool               `json:"is_maker"`
	CreatedTime      *int64              `json:"created_time"`
	Timestamp        *int64              `json:"timestamp"`
}

// UnmarshalJSON decodes a row leniently so one oddly typed field does not
// reject the whole page.
func (r *RawTrade) UnmarshalJSON(b []byte) error {
	type plain RawTrade
	aux := struct {
		*plain
		ID          flexInt  `json:"id"`
		TradeID     flexInt  `json:"trade_id"`
		OrderID     flexInt  `json:"order_id"`
		IsMaker     flexBool `json:"is_maker"`
		CreatedTime flexInt  `json:"created_time"`
		Timestamp   flexInt  `json:"timestamp"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.ID = aux.ID.v
	r.TradeID = aux.TradeID.v
	r.OrderID = aux.OrderID.v
	r.IsMaker = aux.IsMaker.v
	r.CreatedTime = aux.CreatedTime.v
	r.Timestamp = aux.Timestamp.v
	return nil
}

// flexInt accepts 42, "42", 42.0 and "4.2e1". Fractions are truncated;
// null and "" leave it unset.
type flexInt struct{ v *int64 }

func (f *flexInt) UnmarshalJSON(b []byte) error {
	text := unquote(b)
	if text == "" || text == "null" {
		f.v = nil
		return nil
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		f.v = &n
		return nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("orderly: integer field %s: %w", b, err)
	}
	n := d.IntPart()
	f.v = &n
	return nil
}

// flexBool accepts true/false, 0/1 and their quoted forms. Any other number
// is true when non-zero.
type flexBool struct{ v *bool }

func (f *flexBool) UnmarshalJSON(b []byte) error {
	text := unquote(b)
	if text == "" || text == "null" {
		f.v = nil
		return nil
	}
	if v, err := strconv.ParseBool(text); err == nil {
		f.v = &v
		return nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("orderly: bool field %s: %w", b, err)
	}
	v := !d.IsZero()
	f.v = &v
	return nil
}

func unquote(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}
	return string(bytes.TrimSpace(b))
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Rows    json.RawMessage `json:"rows"`
}

// ErrRejected is returned when the venue answers with success=false.
var ErrRejected = errors.New("orderly: request rejected")

// ExtractRows pulls the trade rows out of a response body. The rows may sit
// under data.rows, be the data array itself, sit under a top-level rows key,
// or be the whole body. Any other shape yields no rows.
func ExtractRows(body []byte) ([]RawTrade, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '[' {
		return decodeRows(body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("orderly: decode envelope: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) > 0 && data[0] == '{':
		var inner struct {
			Rows json.RawMessage `json:"rows"`
		}
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, fmt.Errorf("orderly: decode data: %w", err)
		}
		return decodeRows(inner.Rows)
	case len(data) > 0 && data[0] == '[':
		return decodeRows(data)
	case len(env.Rows) > 0:
		return decodeRows(env.Rows)
	}
	return nil, nil
}

func decodeRows(raw json.RawMessage) ([]RawTrade, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var rows []RawTrade
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("orderly: decode rows: %w", err)
	}
	return rows, nil
}
