package pacing

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds the attempts made for a single venue call. After the
// n-th failed attempt (1-based) the caller waits n*Backoff before the next.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Retry runs fn until it succeeds, the attempts are exhausted or ctx is
// done. onError, when set, observes every failed attempt. The returned
// error is the last attempt's error.
func Retry(ctx context.Context, p RetryPolicy, sleep Sleeper, fn func(ctx context.Context) error, onError func(attempt int, err error)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if onError != nil {
			onError(attempt, lastErr)
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			if err := sleep(ctx, time.Duration(attempt)*p.Backoff); err != nil {
				break
			}
		}
	}
	return fmt.Errorf("after %d attempt(s): %w", made, lastErr)
}
