package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies environment variable overrides, and returns the
// final Config. A missing file is not an error: defaults plus the
// environment are enough for a cron deployment. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known environment variables and overwrites the
// corresponding Config fields when a variable is set (i.e. not empty). The
// unprefixed names are the ones the existing cron deployment exports; the
// TRADEFETCH_* names are applied afterwards and win.
func applyEnvOverrides(cfg *Config) {
	// ── Deployment compatibility ──
	setStr(&cfg.Users.MongoURI, "MONGODB_URI")
	setStr(&cfg.Users.MongoDatabase, "DATABASE_NAME")
	setStr(&cfg.Postgres.Host, "POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POSTGRES_DB")
	setStr(&cfg.Postgres.User, "POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	setSeconds(&cfg.Fetch.WalletDelay, "FETCH_DELAY_SECONDS")

	// ── Storage ──
	setStr(&cfg.Storage.Driver, "TRADEFETCH_STORAGE_DRIVER")
	setStr(&cfg.Postgres.DSN, "TRADEFETCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TRADEFETCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TRADEFETCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TRADEFETCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TRADEFETCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TRADEFETCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TRADEFETCH_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TRADEFETCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TRADEFETCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TRADEFETCH_POSTGRES_RUN_MIGRATIONS")
	setStr(&cfg.SQLite.Path, "TRADEFETCH_SQLITE_PATH")

	// ── Users ──
	setStr(&cfg.Users.Source, "TRADEFETCH_USERS_SOURCE")
	setStr(&cfg.Users.MongoURI, "TRADEFETCH_USERS_MONGO_URI")
	setStr(&cfg.Users.MongoDatabase, "TRADEFETCH_USERS_MONGO_DATABASE")
	setStr(&cfg.Users.MongoCollection, "TRADEFETCH_USERS_MONGO_COLLECTION")
	setStr(&cfg.Users.File, "TRADEFETCH_USERS_FILE")

	// ── Venues ──
	setStr(&cfg.Hyperliquid.BaseURL, "TRADEFETCH_HYPERLIQUID_BASE_URL")
	setDuration(&cfg.Hyperliquid.Timeout, "TRADEFETCH_HYPERLIQUID_TIMEOUT")
	setInt(&cfg.Hyperliquid.RateLimit, "TRADEFETCH_HYPERLIQUID_RATE_LIMIT")
	setStr(&cfg.Orderly.BaseURL, "TRADEFETCH_ORDERLY_BASE_URL")
	setDuration(&cfg.Orderly.Timeout, "TRADEFETCH_ORDERLY_TIMEOUT")
	setInt(&cfg.Orderly.RateLimit, "TRADEFETCH_ORDERLY_RATE_LIMIT")

	// ── Fetch ──
	setStr(&cfg.Fetch.DefaultStart, "TRADEFETCH_FETCH_DEFAULT_START")
	setDuration(&cfg.Fetch.WalletDelay, "TRADEFETCH_FETCH_WALLET_DELAY")
	setInt(&cfg.Fetch.BatchSize, "TRADEFETCH_FETCH_BATCH_SIZE")
	setInt(&cfg.Fetch.MaxRetries, "TRADEFETCH_FETCH_MAX_RETRIES")
	setStringSlice(&cfg.Fetch.Platforms, "TRADEFETCH_FETCH_PLATFORMS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TRADEFETCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRADEFETCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADEFETCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADEFETCH_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "TRADEFETCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "TRADEFETCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TRADEFETCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADEFETCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADEFETCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADEFETCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADEFETCH_S3_SECRET_KEY")
	setStr(&cfg.S3.Prefix, "TRADEFETCH_S3_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TRADEFETCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRADEFETCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRADEFETCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRADEFETCH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Log.File, "TRADEFETCH_LOG_FILE")
	setStr(&cfg.LogLevel, "TRADEFETCH_LOG_LEVEL")
	setStr(&cfg.Schedule, "TRADEFETCH_SCHEDULE")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

// setSeconds reads a fractional number of seconds, e.g. "0.5".
func setSeconds(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			dst.Duration = time.Duration(f * float64(time.Second))
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
