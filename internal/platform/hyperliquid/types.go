package hyperliquid

// Fill is one element of the userFillsByTime response. Monetary fields are
// decimal strings on the wire and stay strings until normalization.
type Fill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"` // "B" buy, "A" sell
	Time          int64  `json:"time"` // unix milliseconds
	StartPosition string `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           *int64 `json:"oid"`
	Crossed       *bool  `json:"crossed"`
	Fee           string `json:"fee"`
	Tid           int64  `json:"tid"`
	FeeToken      string `json:"feeToken"`
}

// userFillsByTimeRequest is the body posted to /info.
type userFillsByTimeRequest struct {
	Type            string `json:"type"`
	User            string `json:"user"`
	StartTime       int64  `json:"startTime"`
	EndTime         int64  `json:"endTime"`
	AggregateByTime bool   `json:"aggregateByTime"`
}
