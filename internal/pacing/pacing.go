// Package pacing holds the delay, retry and request-budget primitives shared
// by the venue fetchers and the ingestion loop.
package pacing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep returns immediately. Used by tests.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Limiter gates outbound requests to a venue.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Unlimited never blocks.
type Unlimited struct{}

// Wait implements Limiter.
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// LocalLimiter is an in-process token bucket.
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter allows limit requests per window with a burst of one.
// A non-positive limit yields a limiter that never blocks.
func NewLocalLimiter(limit int, window time.Duration) Limiter {
	if limit <= 0 || window <= 0 {
		return Unlimited{}
	}
	return &LocalLimiter{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), 1)}
}

// Wait implements Limiter.
func (l *LocalLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacing: local limiter: %w", err)
	}
	return nil
}

// SharedLimiter spends from a budget shared by every process talking to the
// same venue, backed by a domain.RateLimiter.
type SharedLimiter struct {
	rl     domain.RateLimiter
	key    string
	limit  int
	window time.Duration
}

// NewSharedLimiter returns a Limiter keyed on key. A non-positive limit
// yields a limiter that never blocks.
func NewSharedLimiter(rl domain.RateLimiter, key string, limit int, window time.Duration) Limiter {
	if rl == nil || limit <= 0 || window <= 0 {
		return Unlimited{}
	}
	return &SharedLimiter{rl: rl, key: key, limit: limit, window: window}
}

// Wait implements Limiter.
func (l *SharedLimiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx, l.key, l.limit, l.window)
}
