package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/alanyoungcy/tradefetch/internal/blob/s3"
	"github.com/alanyoungcy/tradefetch/internal/cache/redis"
	"github.com/alanyoungcy/tradefetch/internal/config"
	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/notify"
	"github.com/alanyoungcy/tradefetch/internal/pacing"
	"github.com/alanyoungcy/tradefetch/internal/pipeline"
	"github.com/alanyoungcy/tradefetch/internal/platform/hyperliquid"
	"github.com/alanyoungcy/tradefetch/internal/platform/orderly"
	"github.com/alanyoungcy/tradefetch/internal/store/postgres"
	"github.com/alanyoungcy/tradefetch/internal/store/sqlite"
	"github.com/alanyoungcy/tradefetch/internal/users"
)

// Dependencies bundles everything a run needs. It is constructed by Wire and
// torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Users    domain.UserDirectory
	Inserter domain.TradeInserter
	Cursors  domain.CursorStore
	Runs     domain.RunStore

	// Optional backends; nil when disabled.
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	Archiver    domain.TradeArchiver

	Fetchers     []domain.TradeFetcher
	Notifier     *notify.Notifier
	Orchestrator *pipeline.Orchestrator
}

// closerList collects cleanup functions from concurrent connectors.
type closerList struct {
	mu  sync.Mutex
	fns []func()
}

func (c *closerList) add(fn func()) {
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

func (c *closerList) run() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
	c.fns = nil
}

// Wire connects the configured backends concurrently and assembles the
// pipeline. Any connection failure aborts startup and releases what was
// already opened.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	closers := &closerList{}
	deps := &Dependencies{}

	g, gctx := errgroup.WithContext(ctx)

	// --- Trade store ---
	g.Go(func() error {
		return wireStore(gctx, cfg, deps, closers)
	})

	// --- User directory ---
	g.Go(func() error {
		switch cfg.Users.Source {
		case "file":
			deps.Users = users.NewFileDirectory(cfg.Users.File)
			return nil
		default:
			dir, err := users.NewMongoDirectory(gctx, users.MongoConfig{
				URI:            cfg.Users.MongoURI,
				Database:       cfg.Users.MongoDatabase,
				Collection:     cfg.Users.MongoCollection,
				ConnectTimeout: cfg.Users.ConnectTimeout.Duration,
			})
			if err != nil {
				return fmt.Errorf("wire: users: %w", err)
			}
			closers.add(func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = dir.Close(closeCtx)
			})
			deps.Users = dir
			return nil
		}
	})

	// --- Redis ---
	if cfg.Redis.Enabled {
		g.Go(func() error {
			client, err := redis.New(gctx, redis.ClientConfig{
				Addr:       cfg.Redis.Addr,
				Password:   cfg.Redis.Password,
				DB:         cfg.Redis.DB,
				PoolSize:   cfg.Redis.PoolSize,
				MaxRetries: cfg.Redis.MaxRetries,
				TLSEnabled: cfg.Redis.TLSEnabled,
				KeyPrefix:  cfg.Redis.KeyPrefix,
			})
			if err != nil {
				return fmt.Errorf("wire: redis: %w", err)
			}
			closers.add(func() { _ = client.Close() })
			deps.RateLimiter = redis.NewRateLimiter(client)
			deps.LockManager = redis.NewRunLock(client)
			return nil
		})
	}

	// --- S3 snapshots ---
	if cfg.S3.Enabled {
		g.Go(func() error {
			client, err := s3blob.New(gctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
				Prefix:         cfg.S3.Prefix,
			})
			if err != nil {
				return fmt.Errorf("wire: s3: %w", err)
			}
			if err := client.Health(gctx); err != nil {
				return fmt.Errorf("wire: s3: %w", err)
			}
			deps.Archiver = s3blob.NewTradeArchiver(s3blob.NewWriter(client), client.Prefix())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		closers.run()
		return nil, nil, err
	}

	// --- Venues ---
	retry := pacing.RetryPolicy{
		MaxAttempts: cfg.Fetch.MaxRetries,
		Backoff:     cfg.Fetch.RetryBackoff.Duration,
	}

	hlLimiter := venueLimiter(deps.RateLimiter, domain.PlatformHyperliquid, cfg.Hyperliquid.RateLimit, cfg.Hyperliquid.RateWindow.Duration)
	hl := hyperliquid.NewWindowedFetcher(
		hyperliquid.NewClient(cfg.Hyperliquid.BaseURL, cfg.Hyperliquid.Timeout.Duration, hlLimiter),
		hyperliquid.FetcherConfig{
			Interval:    cfg.Hyperliquid.Interval.Duration,
			MinInterval: cfg.Hyperliquid.MinInterval.Duration,
			FillsLimit:  cfg.Hyperliquid.FillsLimit,
			Retry:       retry,
			WindowDelay: cfg.Hyperliquid.WindowDelay.Duration,
			SplitDelay:  cfg.Hyperliquid.SplitDelay.Duration,
		},
		logger,
	)

	obLimiter := venueLimiter(deps.RateLimiter, domain.PlatformOrderly, cfg.Orderly.RateLimit, cfg.Orderly.RateWindow.Duration)
	ob := orderly.NewPaginatedFetcher(
		orderly.ClientFactory(cfg.Orderly.BaseURL, cfg.Orderly.Timeout.Duration, obLimiter),
		orderly.FetcherConfig{
			PageSize:  cfg.Orderly.PageSize,
			Retry:     retry,
			PageDelay: cfg.Orderly.PageDelay.Duration,
		},
		logger,
	)
	deps.Fetchers = []domain.TradeFetcher{hl, ob}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			"",
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// --- Pipeline ---
	start, err := cfg.DefaultStartTime()
	if err != nil {
		closers.run()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	orch := pipeline.NewOrchestrator(
		deps.Users,
		deps.Fetchers,
		pipeline.NewBatchWriter(deps.Inserter, cfg.Fetch.BatchSize, logger),
		deps.Cursors,
		pipeline.Config{
			DefaultStart: start,
			WalletDelay:  cfg.Fetch.WalletDelay.Duration,
			LockKey:      cfg.Fetch.LockKey,
			LockTTL:      cfg.Fetch.LockTTL.Duration,
		},
		logger,
	)
	orch.SetRunStore(deps.Runs)
	if deps.LockManager != nil {
		orch.SetLocker(deps.LockManager)
	}
	if deps.Archiver != nil {
		orch.SetArchiver(deps.Archiver)
	}
	if deps.Notifier != nil {
		orch.SetNotifier(deps.Notifier)
	}
	deps.Orchestrator = orch

	return deps, closers.run, nil
}

// wireStore opens the configured trade store and fills the store fields.
func wireStore(ctx context.Context, cfg *config.Config, deps *Dependencies, closers *closerList) error {
	switch cfg.Storage.Driver {
	case "sqlite":
		client, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("wire: sqlite: %w", err)
		}
		closers.add(func() { _ = client.Close() })

		if cfg.SQLite.RunMigrations {
			if err := client.RunMigrations(ctx); err != nil {
				return fmt.Errorf("wire: sqlite migrations: %w", err)
			}
		}
		db := client.DB()
		deps.Inserter = sqlite.NewTradeStore(db)
		deps.Cursors = sqlite.NewCursorStore(db)
		deps.Runs = sqlite.NewRunStore(db)
		return nil

	default:
		client, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:            cfg.Postgres.DSN,
			Host:           cfg.Postgres.Host,
			Port:           cfg.Postgres.Port,
			Database:       cfg.Postgres.Database,
			User:           cfg.Postgres.User,
			Password:       cfg.Postgres.Password,
			SSLMode:        cfg.Postgres.SSLMode,
			MaxConns:       cfg.Postgres.PoolMaxConns,
			MinConns:       cfg.Postgres.PoolMinConns,
			ConnectTimeout: cfg.Postgres.ConnectTimeout.Duration,
		})
		if err != nil {
			return fmt.Errorf("wire: postgres: %w", err)
		}
		closers.add(client.Close)

		if cfg.Postgres.RunMigrations {
			if err := client.RunMigrations(ctx); err != nil {
				return fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		pool := client.Pool()
		deps.Inserter = postgres.NewTradeStore(pool)
		deps.Cursors = postgres.NewCursorStore(pool)
		deps.Runs = postgres.NewRunStore(pool)
		return nil
	}
}

// venueLimiter prefers the shared Redis budget and falls back to an
// in-process token bucket.
func venueLimiter(rl domain.RateLimiter, p domain.Platform, limit int, window time.Duration) pacing.Limiter {
	if rl != nil {
		return pacing.NewSharedLimiter(rl, string(p), limit, window)
	}
	return pacing.NewLocalLimiter(limit, window)
}
