package orderly

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/tradefetch/internal/crypto"
	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/pacing"
)

// TradeSource serves pages of one account's trades.
type TradeSource interface {
	Trades(ctx context.Context, start, end time.Time, page, size int) ([]RawTrade, error)
}

// SourceFactory builds the TradeSource for an account.
type SourceFactory func(creds domain.OrderlyCredentials) (TradeSource, error)

// ClientFactory returns a SourceFactory producing signed HTTP clients.
func ClientFactory(baseURL string, timeout time.Duration, limiter pacing.Limiter) SourceFactory {
	return func(creds domain.OrderlyCredentials) (TradeSource, error) {
		auth, err := crypto.NewOrderlyAuth(creds.Key, creds.Secret, creds.AccountID)
		if err != nil {
			return nil, err
		}
		return NewClient(baseURL, timeout, auth, limiter), nil
	}
}

// FetcherConfig tunes pagination.
type FetcherConfig struct {
	PageSize  int
	Retry     pacing.RetryPolicy
	PageDelay time.Duration
}

// DefaultFetcherConfig returns the production tuning.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		PageSize:  500,
		Retry:     pacing.RetryPolicy{MaxAttempts: 3, Backoff: time.Second},
		PageDelay: 300 * time.Millisecond,
	}
}

// PaginatedFetcher walks page numbers from 1 until an empty or short page.
// Sources are cached per account for the life of the fetcher.
type PaginatedFetcher struct {
	newSource SourceFactory
	cfg       FetcherConfig
	sleep     pacing.Sleeper
	now       func() time.Time
	logger    *slog.Logger

	mu      sync.Mutex
	sources map[string]TradeSource
}

// NewPaginatedFetcher creates a fetcher. Zero fields in cfg take their
// defaults.
func NewPaginatedFetcher(factory SourceFactory, cfg FetcherConfig, logger *slog.Logger) *PaginatedFetcher {
	def := DefaultFetcherConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaginatedFetcher{
		newSource: factory,
		cfg:       cfg,
		sleep:     pacing.Sleep,
		now:       time.Now,
		logger:    logger.With(slog.String("platform", string(domain.PlatformOrderly))),
		sources:   make(map[string]TradeSource),
	}
}

// SetSleeper replaces the delay function used between calls.
func (f *PaginatedFetcher) SetSleeper(s pacing.Sleeper) {
	f.sleep = s
}

// SetClock replaces the clock used for rows without a timestamp.
func (f *PaginatedFetcher) SetClock(now func() time.Time) {
	f.now = now
}

// Platform implements domain.TradeFetcher.
func (f *PaginatedFetcher) Platform() domain.Platform { return domain.PlatformOrderly }

// CanFetch implements domain.TradeFetcher.
func (f *PaginatedFetcher) CanFetch(user domain.User) bool {
	return user.Orderly.Complete()
}

// FetchTrades implements domain.TradeFetcher. A user without complete
// credentials yields no trades and no error. A page that still fails after
// retries ends the walk; the trades gathered so far are returned with an
// error wrapping domain.ErrIncompleteFetch.
func (f *PaginatedFetcher) FetchTrades(ctx context.Context, req domain.FetchRequest) ([]domain.TradeRecord, error) {
	wallet := req.User.WalletAddress
	log := f.logger.With(slog.String("wallet", domain.ShortAddress(wallet)))

	creds := req.User.Orderly
	if !creds.Complete() {
		log.Info("orderly credentials missing, skipping")
		return nil, nil
	}
	log = log.With(slog.String("account_id", creds.AccountID))

	source, err := f.source(*creds)
	if err != nil {
		log.Error("orderly client setup failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("orderly: %s: %w: %w", wallet, domain.ErrIncompleteFetch, err)
	}

	log.Info("fetching trades",
		slog.Time("start", req.Start),
		slog.Time("end", req.End),
	)

	var trades []domain.TradeRecord
	for page := 1; ; page++ {
		if page > 1 {
			if err := f.sleep(ctx, f.cfg.PageDelay); err != nil {
				return trades, fmt.Errorf("orderly: %s page %d: %w: %w", wallet, page, domain.ErrIncompleteFetch, err)
			}
		}

		var rows []RawTrade
		err := pacing.Retry(ctx, f.cfg.Retry, f.sleep, func(ctx context.Context) error {
			var err error
			rows, err = source.Trades(ctx, req.Start, req.End, page, f.cfg.PageSize)
			return err
		}, func(attempt int, err error) {
			log.Warn("trades page failed",
				slog.Int("page", page),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", f.cfg.Retry.MaxAttempts),
				slog.String("error", err.Error()),
			)
		})
		if err != nil {
			log.Error("abandoning pagination",
				slog.Int("page", page),
				slog.Int("fetched", len(trades)),
				slog.String("error", err.Error()),
			)
			return trades, fmt.Errorf("orderly: %s page %d: %w: %w", wallet, page, domain.ErrIncompleteFetch, err)
		}

		if len(rows) == 0 {
			log.Debug("no more rows", slog.Int("page", page))
			break
		}
		now := f.now()
		for _, raw := range rows {
			trades = append(trades, Normalize(wallet, creds.AccountID, raw, now))
		}
		log.Debug("page fetched", slog.Int("page", page), slog.Int("count", len(rows)))

		if len(rows) < f.cfg.PageSize {
			break
		}
	}

	log.Info("trades fetched", slog.Int("count", len(trades)))
	return trades, nil
}

func (f *PaginatedFetcher) source(creds domain.OrderlyCredentials) (TradeSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.sources[creds.AccountID]; ok {
		return s, nil
	}
	s, err := f.newSource(creds)
	if err != nil {
		return nil, err
	}
	f.sources[creds.AccountID] = s
	return s, nil
}
