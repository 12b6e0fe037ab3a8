// Package pipeline runs the ingestion loop: for every wallet and venue it
// reads the fetch cursor, pulls new trades, writes them idempotently and
// advances the cursor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alanyoungcy/tradefetch/internal/domain"
	"github.com/alanyoungcy/tradefetch/internal/pacing"
)

// DefaultStart is where a wallet without a cursor starts fetching.
var DefaultStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Config tunes the orchestrator.
type Config struct {
	DefaultStart time.Time
	WalletDelay  time.Duration
	LockKey      string
	LockTTL      time.Duration
}

// RunOptions narrows a single run.
type RunOptions struct {
	// Platforms restricts the venues; empty means all, in fixed order.
	Platforms []domain.Platform
	// Wallet restricts the run to one wallet address.
	Wallet string
}

// RunNotifier announces finished runs.
type RunNotifier interface {
	NotifyRun(ctx context.Context, run domain.Run) error
}

// Orchestrator processes wallets strictly one after another and venues in
// fixed order within a wallet. Per-wallet failures are logged, recorded on
// the cursor and counted; they never abort the run.
type Orchestrator struct {
	users    domain.UserDirectory
	fetchers map[domain.Platform]domain.TradeFetcher
	writer   *BatchWriter
	cursors  domain.CursorStore
	cfg      Config
	logger   *slog.Logger

	runs     domain.RunStore
	archiver domain.TradeArchiver
	locks    domain.LockManager
	notifier RunNotifier

	sleep pacing.Sleeper
	now   func() time.Time
	newID func() string
}

// NewOrchestrator creates an Orchestrator over the given fetchers.
func NewOrchestrator(
	users domain.UserDirectory,
	fetchers []domain.TradeFetcher,
	writer *BatchWriter,
	cursors domain.CursorStore,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.DefaultStart.IsZero() {
		cfg.DefaultStart = DefaultStart
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "run"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 6 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	byPlatform := make(map[domain.Platform]domain.TradeFetcher, len(fetchers))
	for _, f := range fetchers {
		byPlatform[f.Platform()] = f
	}
	return &Orchestrator{
		users:    users,
		fetchers: byPlatform,
		writer:   writer,
		cursors:  cursors,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "orchestrator")),
		sleep:    pacing.Sleep,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetRunStore records run history in s.
func (o *Orchestrator) SetRunStore(s domain.RunStore) { o.runs = s }

// SetArchiver keeps a snapshot of every fetched batch in a.
func (o *Orchestrator) SetArchiver(a domain.TradeArchiver) { o.archiver = a }

// SetLocker guards each run with a lock from l.
func (o *Orchestrator) SetLocker(l domain.LockManager) { o.locks = l }

// SetNotifier announces finished runs through n.
func (o *Orchestrator) SetNotifier(n RunNotifier) { o.notifier = n }

// SetSleeper replaces the inter-wallet delay function.
func (o *Orchestrator) SetSleeper(s pacing.Sleeper) { o.sleep = s }

// SetClock replaces the clock.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Run executes one ingestion pass. An error is returned only when the run
// could not start: the lock is held, the wallet filter is invalid or the
// user directory is unreachable. The returned Run carries the counters in
// every case.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (domain.Run, error) {
	platforms := opts.Platforms
	if len(platforms) == 0 {
		platforms = domain.AllPlatforms()
	}
	run := domain.Run{
		ID:             o.newID(),
		StartedAt:      o.now().UTC(),
		PlatformFilter: platforms,
		WalletFilter:   opts.Wallet,
		Status:         domain.RunStatusRunning,
		Stats:          domain.NewRunStats(),
	}
	log := o.logger.With(slog.String("run_id", run.ID))

	if opts.Wallet != "" && !common.IsHexAddress(opts.Wallet) {
		return run, fmt.Errorf("pipeline: invalid wallet address %q", opts.Wallet)
	}

	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, o.cfg.LockKey, o.cfg.LockTTL)
		if err != nil {
			return run, fmt.Errorf("pipeline: acquire run lock: %w", err)
		}
		defer unlock()
	}

	users, err := o.users.ListUsers(ctx, opts.Wallet)
	if err != nil {
		return run, fmt.Errorf("pipeline: list users: %w", err)
	}

	log.Info("run started",
		slog.Int("wallets", len(users)),
		slog.Any("platforms", platforms),
	)
	if o.runs != nil {
		if err := o.runs.Start(ctx, run); err != nil {
			log.Warn("recording run start failed", slog.String("error", err.Error()))
		}
	}

	for _, user := range users {
		if ctx.Err() != nil {
			break
		}
		if !common.IsHexAddress(user.WalletAddress) {
			log.Warn("skipping user with invalid wallet address",
				slog.String("user_id", user.ID),
				slog.String("wallet", user.WalletAddress),
			)
			continue
		}
		if run.Stats.WalletsProcessed > 0 {
			if err := o.sleep(ctx, o.cfg.WalletDelay); err != nil {
				break
			}
		}

		o.processWallet(ctx, run.ID, user, platforms, &run.Stats)
		run.Stats.WalletsProcessed++
	}

	finished := o.now().UTC()
	run.FinishedAt = &finished
	run.Stats.Elapsed = finished.Sub(run.StartedAt)
	run.Status = domain.RunStatusCompleted
	if err := ctx.Err(); err != nil {
		run.Status = domain.RunStatusFailed
		msg := err.Error()
		run.Error = &msg
	}

	// Bookkeeping outlives a cancelled run context.
	finishCtx := context.WithoutCancel(ctx)
	if o.runs != nil {
		if err := o.runs.Finish(finishCtx, run); err != nil {
			log.Warn("recording run finish failed", slog.String("error", err.Error()))
		}
	}
	if o.notifier != nil {
		if err := o.notifier.NotifyRun(finishCtx, run); err != nil {
			log.Warn("run notification failed", slog.String("error", err.Error()))
		}
	}

	log.Info("run finished",
		slog.String("status", string(run.Status)),
		slog.Int("wallets", run.Stats.WalletsProcessed),
		slog.Int("inserted", run.Stats.TotalInserted()),
		slog.Int("errors", run.Stats.Errors),
		slog.Duration("elapsed", run.Stats.Elapsed),
	)
	return run, nil
}

// processWallet runs every selected venue for one user.
func (o *Orchestrator) processWallet(ctx context.Context, runID string, user domain.User, platforms []domain.Platform, stats *domain.RunStats) {
	wallet := user.WalletAddress
	for _, platform := range platforms {
		if ctx.Err() != nil {
			return
		}
		log := o.logger.With(
			slog.String("wallet", domain.ShortAddress(wallet)),
			slog.String("platform", string(platform)),
		)

		fetcher, ok := o.fetchers[platform]
		if !ok {
			continue
		}
		if !fetcher.CanFetch(user) {
			log.Info("credentials missing, skipping platform")
			continue
		}

		cursor, err := o.cursors.Get(ctx, wallet, platform)
		if err != nil {
			log.Error("reading cursor failed", slog.String("error", err.Error()))
			stats.Errors++
			continue
		}
		start := o.cfg.DefaultStart
		if cursor != nil && cursor.LastFetchTime != nil {
			start = *cursor.LastFetchTime
		}
		end := o.now().UTC()

		trades, fetchErr := fetcher.FetchTrades(ctx, domain.FetchRequest{User: user, Start: start, End: end})
		stats.Fetched[platform] += len(trades)

		if o.archiver != nil && len(trades) > 0 {
			if path, err := o.archiver.ArchiveTrades(ctx, runID, platform, wallet, trades); err != nil {
				log.Warn("archiving snapshot failed", slog.String("error", err.Error()))
			} else {
				log.Debug("snapshot archived", slog.String("path", path))
			}
		}

		inserted, writeErr := o.writer.Upsert(ctx, trades)
		stats.Inserted[platform] += inserted

		adv := domain.CursorAdvance{
			WalletAddress: wallet,
			Platform:      platform,
			Inserted:      int64(inserted),
		}
		runErr := errors.Join(fetchErr, writeErr)
		// Skipped records are unrecoverable by refetching, so they are
		// reported without holding the watermark back.
		holdWatermark := writeErr != nil ||
			(fetchErr != nil && (errors.Is(fetchErr, domain.ErrIncompleteFetch) || !errors.Is(fetchErr, domain.ErrSkippedRecords)))
		if runErr != nil {
			msg := runErr.Error()
			adv.Error = &msg
			stats.Errors++
		}
		if holdWatermark {
			log.Error("wallet fetch incomplete, watermark kept",
				slog.Int("fetched", len(trades)),
				slog.Int("inserted", inserted),
				slog.String("error", *adv.Error),
			)
		} else {
			if runErr != nil {
				log.Warn("malformed records skipped",
					slog.Int("fetched", len(trades)),
					slog.String("error", *adv.Error),
				)
			}
			if latest, ok := domain.LatestExecutedAt(trades); ok {
				adv.Watermark = &latest
			}
		}

		if err := o.cursors.Advance(context.WithoutCancel(ctx), adv); err != nil {
			log.Error("advancing cursor failed", slog.String("error", err.Error()))
			stats.Errors++
			continue
		}
		log.Info("wallet platform done",
			slog.Time("start", start),
			slog.Int("fetched", len(trades)),
			slog.Int("inserted", inserted),
		)
	}
}
