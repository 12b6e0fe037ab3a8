// Package hyperliquid fetches and normalizes a wallet's fill history from the
// Hyperliquid info API.
package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/tradefetch/internal/pacing"
	"github.com/alanyoungcy/tradefetch/internal/platform"
)

// DefaultBaseURL is the public mainnet API.
const DefaultBaseURL = "https://api.hyperliquid.xyz"

// Client talks to the unauthenticated /info endpoint.
type Client struct {
	http    *resty.Client
	limiter pacing.Limiter
}

// NewClient creates a client rooted at baseURL. A nil limiter never blocks.
func NewClient(baseURL string, timeout time.Duration, limiter pacing.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = pacing.Unlimited{}
	}
	return &Client{
		http:    platform.NewRESTClient(baseURL, timeout),
		limiter: limiter,
	}
}

// UserFillsByTime returns the fills of wallet executed in [start, end). The
// API treats endTime as inclusive, so one millisecond is taken off end.
func (c *Client) UserFillsByTime(ctx context.Context, wallet string, start, end time.Time) ([]Fill, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("hyperliquid: user fills: %w", err)
	}

	body := userFillsByTimeRequest{
		Type:      "userFillsByTime",
		User:      wallet,
		StartTime: start.UnixMilli(),
		EndTime:   end.UnixMilli() - 1,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/info")
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: user fills: %w", err)
	}
	if err := platform.CheckStatus("hyperliquid", resp); err != nil {
		return nil, err
	}

	var fills []Fill
	if err := json.Unmarshal(resp.Body(), &fills); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode user fills: %w", err)
	}
	return fills, nil
}
