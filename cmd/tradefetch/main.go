// Command tradefetch ingests trade history for every wallet in the user
// directory from Hyperliquid and Orderly into the trade store. It loads
// configuration, applies command-line overrides, validates, wires
// dependencies and runs once or on the configured schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alanyoungcy/tradefetch/internal/app"
	"github.com/alanyoungcy/tradefetch/internal/config"
	"github.com/alanyoungcy/tradefetch/internal/domain"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "tradefetch.toml", "path to configuration file")
	platformFlag := flag.String("platform", "", "only fetch this platform (hyperliquid|orderly)")
	walletFlag := flag.String("wallet", "", "only fetch this wallet address")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	mongoURI := flag.String("mongodb-uri", "", "MongoDB connection URI")
	mongoDB := flag.String("mongodb-database", "", "MongoDB database name")
	once := flag.Bool("once", false, "run once and exit, ignoring the schedule")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		return 1
	}

	// Command-line flags win over file and environment.
	if *postgresDSN != "" {
		cfg.Postgres.DSN = *postgresDSN
	}
	if *mongoURI != "" {
		cfg.Users.MongoURI = *mongoURI
	}
	if *mongoDB != "" {
		cfg.Users.MongoDatabase = *mongoDB
	}

	logFile := setupLogger(cfg)
	if logFile != nil {
		defer logFile.Close()
	}
	logger = slog.Default()

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}
	logger.Debug("active configuration", slog.Any("config", config.RedactedConfig(cfg)))

	opts, err := runOptions(cfg, *platformFlag, *walletFlag, *once)
	if err != nil {
		logger.Error("invalid arguments", slog.String("error", err.Error()))
		return 1
	}

	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, opts); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("tradefetch shut down gracefully")
			return 0
		}
		logger.Error("tradefetch exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}

	logger.Info("tradefetch finished")
	return 0
}

// runOptions merges the command-line filters with the configured platforms.
func runOptions(cfg *config.Config, platformFlag, wallet string, once bool) (app.Options, error) {
	opts := app.Options{Once: once}

	if platformFlag != "" {
		p, err := domain.ParsePlatform(platformFlag)
		if err != nil {
			return opts, err
		}
		opts.Platforms = []domain.Platform{p}
	} else {
		platforms, err := cfg.SelectedPlatforms()
		if err != nil {
			return opts, err
		}
		opts.Platforms = platforms
	}

	if wallet = strings.TrimSpace(wallet); wallet != "" {
		if !common.IsHexAddress(wallet) {
			return opts, fmt.Errorf("invalid wallet address %q", wallet)
		}
		opts.Wallet = wallet
	}
	return opts, nil
}

// setupLogger installs the default JSON logger at the configured level,
// teeing to a rotating file when one is configured. The returned closer is
// nil when no file is used.
func setupLogger(cfg *config.Config) io.Closer {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	var closer io.Closer
	if cfg.Log.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})))
	return closer
}
