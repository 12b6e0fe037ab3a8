// Package platform holds the HTTP plumbing shared by the venue clients.
package platform

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// DefaultTimeout bounds a single venue call when the caller does not set one.
const DefaultTimeout = 30 * time.Second

// NewRESTClient returns a resty client rooted at baseURL. Resty's own retry
// loop is left disabled; the fetchers own the retry policy.
func NewRESTClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "tradefetch/1")
}

// CheckStatus maps a non-2xx response to an error prefixed with venue.
// Rate limiting and auth failures wrap the matching domain sentinels.
func CheckStatus(venue string, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	switch resp.StatusCode() {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: HTTP %d: %w: %s", venue, resp.StatusCode(), domain.ErrRateLimited, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: HTTP %d: %w: %s", venue, resp.StatusCode(), domain.ErrUnauthorized, body)
	default:
		return fmt.Errorf("%s: HTTP %d: %s", venue, resp.StatusCode(), body)
	}
}
