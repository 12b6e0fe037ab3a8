// Package orderly fetches and normalizes an account's trade history from the
// Orderly REST API.
package orderly

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/tradefetch/internal/crypto"
	"github.com/alanyoungcy/tradefetch/internal/pacing"
	"github.com/alanyoungcy/tradefetch/internal/platform"
)

// DefaultBaseURL is the public EVM mainnet API.
const DefaultBaseURL = "https://api-evm.orderly.org"

// Client issues signed requests on behalf of one account.
type Client struct {
	http    *resty.Client
	auth    *crypto.OrderlyAuth
	limiter pacing.Limiter
}

// NewClient creates a client for the account behind auth. A nil limiter
// never blocks.
func NewClient(baseURL string, timeout time.Duration, auth *crypto.OrderlyAuth, limiter pacing.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = pacing.Unlimited{}
	}
	return &Client{
		http:    platform.NewRESTClient(baseURL, timeout),
		auth:    auth,
		limiter: limiter,
	}
}

// Trades returns one page of the account's trades executed in [start, end).
// Pages are 1-based.
func (c *Client) Trades(ctx context.Context, start, end time.Time, page, size int) ([]RawTrade, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("orderly: trades: %w", err)
	}

	q := url.Values{}
	q.Set("start_t", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end_t", strconv.FormatInt(end.UnixMilli()-1, 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	path := "/v1/trades?" + q.Encode()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeaders(c.auth.Headers(http.MethodGet, path, "")).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("orderly: trades page %d: %w", page, err)
	}
	if err := platform.CheckStatus("orderly", resp); err != nil {
		return nil, err
	}
	return ExtractRows(resp.Body())
}
