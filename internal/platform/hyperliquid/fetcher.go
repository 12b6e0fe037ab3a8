package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/pacing"
)

// FillSource is the single query the fetcher needs from the venue.
type FillSource interface {
	UserFillsByTime(ctx context.Context, wallet string, start, end time.Time) ([]Fill, error)
}

// FetcherConfig tunes the windowed walk over a wallet's history.
type FetcherConfig struct {
	// Interval is the span of each top-level window.
	Interval time.Duration
	// MinInterval is the smallest window that may still be bisected.
	MinInterval time.Duration
	// FillsLimit is the server-side cap on fills per response. A window
	// returning at least this many fills is treated as saturated.
	FillsLimit int
	Retry      pacing.RetryPolicy
	// WindowDelay separates consecutive top-level windows.
	WindowDelay time.Duration
	// SplitDelay separates the two halves of a bisected window.
	SplitDelay time.Duration
}

// DefaultFetcherConfig returns the production tuning.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Interval:    30 * 24 * time.Hour,
		MinInterval: time.Hour,
		FillsLimit:  500,
		Retry:       pacing.RetryPolicy{MaxAttempts: 3, Backoff: time.Second},
		WindowDelay: 200 * time.Millisecond,
		SplitDelay:  200 * time.Millisecond,
	}
}

// WindowedFetcher walks [start, end) in fixed windows and bisects any window
// whose response hit the server cap, so a dense period is fetched in full.
type WindowedFetcher struct {
	source FillSource
	cfg    FetcherConfig
	sleep  pacing.Sleeper
	logger *slog.Logger
}

// NewWindowedFetcher creates a fetcher over source. Zero fields in cfg take
// their defaults.
func NewWindowedFetcher(source FillSource, cfg FetcherConfig, logger *slog.Logger) *WindowedFetcher {
	def := DefaultFetcherConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.FillsLimit <= 0 {
		cfg.FillsLimit = def.FillsLimit
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowedFetcher{
		source: source,
		cfg:    cfg,
		sleep:  pacing.Sleep,
		logger: logger.With(slog.String("platform", string(domain.PlatformHyperliquid))),
	}
}

// SetSleeper replaces the delay function used between calls.
func (f *WindowedFetcher) SetSleeper(s pacing.Sleeper) {
	f.sleep = s
}

// Platform implements domain.TradeFetcher.
func (f *WindowedFetcher) Platform() domain.Platform { return domain.PlatformHyperliquid }

// CanFetch implements domain.TradeFetcher. Only a wallet address is needed.
func (f *WindowedFetcher) CanFetch(user domain.User) bool {
	return user.WalletAddress != ""
}

// FetchTrades implements domain.TradeFetcher. Windows that still fail after
// retries are skipped; their errors are joined into the returned error while
// the trades from every other window are returned. Fills that cannot be
// normalized are dropped and reported under domain.ErrSkippedRecords.
func (f *WindowedFetcher) FetchTrades(ctx context.Context, req domain.FetchRequest) ([]domain.TradeRecord, error) {
	wallet := req.User.WalletAddress
	log := f.logger.With(slog.String("wallet", domain.ShortAddress(wallet)))
	log.Info("fetching fills",
		slog.Time("start", req.Start),
		slog.Time("end", req.End),
	)

	var (
		trades  []domain.TradeRecord
		errs    []error
		skipped []error
	)
	for windowStart := req.Start; windowStart.Before(req.End); {
		windowEnd := windowStart.Add(f.cfg.Interval)
		if windowEnd.After(req.End) {
			windowEnd = req.End
		}
		if !windowStart.Equal(req.Start) {
			if err := f.sleep(ctx, f.cfg.WindowDelay); err != nil {
				errs = append(errs, err)
				break
			}
		}

		got, err := f.fetchWindow(ctx, wallet, windowStart, windowEnd, 0, &skipped)
		trades = append(trades, got...)
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
		windowStart = windowEnd
	}

	log.Info("fills fetched",
		slog.Int("count", len(trades)),
		slog.Int("failed_windows", len(errs)),
		slog.Int("skipped_fills", len(skipped)),
	)
	var skipErr error
	if len(skipped) > 0 {
		skipErr = fmt.Errorf("%w: %d fills: %w", domain.ErrSkippedRecords, len(skipped), errors.Join(skipped...))
	}
	if len(errs) > 0 {
		errs = append(errs, skipErr)
		return trades, fmt.Errorf("hyperliquid: %s: %w: %w", wallet, domain.ErrIncompleteFetch, errors.Join(errs...))
	}
	if skipErr != nil {
		return trades, fmt.Errorf("hyperliquid: %s: %w", wallet, skipErr)
	}
	return trades, nil
}

// fetchWindow retrieves [start, end), recursing into halves while the
// response is saturated and the window is still wider than MinInterval.
func (f *WindowedFetcher) fetchWindow(ctx context.Context, wallet string, start, end time.Time, depth int, skipped *[]error) ([]domain.TradeRecord, error) {
	var fills []Fill
	err := pacing.Retry(ctx, f.cfg.Retry, f.sleep, func(ctx context.Context) error {
		var err error
		fills, err = f.source.UserFillsByTime(ctx, wallet, start, end)
		return err
	}, func(attempt int, err error) {
		f.logger.Warn("fill query failed",
			slog.String("wallet", domain.ShortAddress(wallet)),
			slog.Time("window_start", start),
			slog.Time("window_end", end),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.cfg.Retry.MaxAttempts),
			slog.String("error", err.Error()),
		)
	})
	if err != nil {
		f.logger.Error("window abandoned",
			slog.String("wallet", domain.ShortAddress(wallet)),
			slog.Time("window_start", start),
			slog.Time("window_end", end),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("window %s ~ %s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}

	if len(fills) >= f.cfg.FillsLimit {
		span := end.Sub(start)
		mid := start.Add(span / 2).Truncate(time.Millisecond)
		if span > f.cfg.MinInterval && mid.After(start) {
			f.logger.Debug("window saturated, bisecting",
				slog.String("wallet", domain.ShortAddress(wallet)),
				slog.Time("window_start", start),
				slog.Time("window_end", end),
				slog.Int("fills", len(fills)),
				slog.Int("depth", depth),
			)
			left, leftErr := f.fetchWindow(ctx, wallet, start, mid, depth+1, skipped)
			if err := f.sleep(ctx, f.cfg.SplitDelay); err != nil {
				return left, errors.Join(leftErr, err)
			}
			right, rightErr := f.fetchWindow(ctx, wallet, mid, end, depth+1, skipped)
			return append(left, right...), errors.Join(leftErr, rightErr)
		}
		f.logger.Warn("window at fill limit and too small to split, results may be truncated",
			slog.String("wallet", domain.ShortAddress(wallet)),
			slog.Time("window_start", start),
			slog.Time("window_end", end),
			slog.Int("fills", len(fills)),
		)
	}

	return f.normalize(wallet, fills, skipped), nil
}

func (f *WindowedFetcher) normalize(wallet string, fills []Fill, skipped *[]error) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(fills))
	for _, fill := range fills {
		rec, err := Normalize(wallet, fill)
		if err != nil {
			f.logger.Warn("skipping malformed fill",
				slog.String("wallet", domain.ShortAddress(wallet)),
				slog.Int64("tid", fill.Tid),
				slog.String("error", err.Error()),
			)
			*skipped = append(*skipped, err)
			continue
		}
		out = append(out, rec)
	}
	return out
}
