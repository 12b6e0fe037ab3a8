// Package config defines the configuration of the trade ingestion job and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRADEFETCH_* environment variables.
type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Postgres    PostgresConfig    `toml:"postgres"`
	SQLite      SQLiteConfig      `toml:"sqlite"`
	Users       UsersConfig       `toml:"users"`
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Orderly     OrderlyConfig     `toml:"orderly"`
	Fetch       FetchConfig       `toml:"fetch"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Notify      NotifyConfig      `toml:"notify"`
	Log         LogConfig         `toml:"log"`
	LogLevel    string            `toml:"log_level"`
	// Schedule is a standard 5-field cron expression. Empty runs once.
	Schedule string `toml:"schedule"`
}

// StorageConfig selects the trade store backend.
type StorageConfig struct {
	Driver string `toml:"driver"` // postgres | sqlite
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN            string   `toml:"dsn"`
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Database       string   `toml:"database"`
	User           string   `toml:"user"`
	Password       string   `toml:"password"`
	SSLMode        string   `toml:"ssl_mode"`
	PoolMaxConns   int      `toml:"pool_max_conns"`
	PoolMinConns   int      `toml:"pool_min_conns"`
	ConnectTimeout duration `toml:"connect_timeout"`
	RunMigrations  bool     `toml:"run_migrations"`
}

// SQLiteConfig holds the local database file location.
type SQLiteConfig struct {
	Path          string `toml:"path"`
	RunMigrations bool   `toml:"run_migrations"`
}

// UsersConfig selects and configures the user directory.
type UsersConfig struct {
	Source          string   `toml:"source"` // mongo | file
	MongoURI        string   `toml:"mongo_uri"`
	MongoDatabase   string   `toml:"mongo_database"`
	MongoCollection string   `toml:"mongo_collection"`
	ConnectTimeout  duration `toml:"connect_timeout"`
	File            string   `toml:"file"`
}

// HyperliquidConfig tunes the Hyperliquid client and windowed fetcher.
type HyperliquidConfig struct {
	BaseURL     string   `toml:"base_url"`
	Timeout     duration `toml:"timeout"`
	Interval    duration `toml:"interval"`
	MinInterval duration `toml:"min_interval"`
	FillsLimit  int      `toml:"fills_limit"`
	WindowDelay duration `toml:"window_delay"`
	SplitDelay  duration `toml:"split_delay"`
	// RateLimit requests per RateWindow; 0 disables the budget.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// OrderlyConfig tunes the Orderly client and paginated fetcher.
type OrderlyConfig struct {
	BaseURL    string   `toml:"base_url"`
	Timeout    duration `toml:"timeout"`
	PageSize   int      `toml:"page_size"`
	PageDelay  duration `toml:"page_delay"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// FetchConfig holds the ingestion loop settings shared by both venues.
type FetchConfig struct {
	// DefaultStart is an RFC 3339 timestamp used for wallets never fetched.
	DefaultStart string   `toml:"default_start"`
	WalletDelay  duration `toml:"wallet_delay"`
	BatchSize    int      `toml:"batch_size"`
	MaxRetries   int      `toml:"max_retries"`
	RetryBackoff duration `toml:"retry_backoff"`
	Platforms    []string `toml:"platforms"`
	LockKey      string   `toml:"lock_key"`
	LockTTL      duration `toml:"lock_ttl"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// enabled it backs the shared request budget and the run lock.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds object storage parameters for trade snapshots.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// NotifyConfig holds notification channel credentials and event filters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// LogConfig configures the optional rotating log file.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// duration wraps time.Duration so it can be decoded from a TOML string.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "200ms" or "720h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with production defaults.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{Driver: "postgres"},
		Postgres: PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "trades_db",
			User:           "postgres",
			SSLMode:        "disable",
			PoolMaxConns:   10,
			PoolMinConns:   2,
			ConnectTimeout: duration{10 * time.Second},
			RunMigrations:  true,
		},
		SQLite: SQLiteConfig{
			Path:          "tradefetch.db",
			RunMigrations: true,
		},
		Users: UsersConfig{
			Source:          "mongo",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "referral_system",
			MongoCollection: "users",
			ConnectTimeout:  duration{10 * time.Second},
		},
		Hyperliquid: HyperliquidConfig{
			BaseURL:     "https://api.hyperliquid.xyz",
			Timeout:     duration{30 * time.Second},
			Interval:    duration{30 * 24 * time.Hour},
			MinInterval: duration{time.Hour},
			FillsLimit:  500,
			WindowDelay: duration{200 * time.Millisecond},
			SplitDelay:  duration{200 * time.Millisecond},
			RateWindow:  duration{time.Minute},
		},
		Orderly: OrderlyConfig{
			BaseURL:    "https://api-evm.orderly.org",
			Timeout:    duration{30 * time.Second},
			PageSize:   500,
			PageDelay:  duration{300 * time.Millisecond},
			RateWindow: duration{time.Second},
		},
		Fetch: FetchConfig{
			DefaultStart: "2025-01-01T00:00:00Z",
			WalletDelay:  duration{500 * time.Millisecond},
			BatchSize:    500,
			MaxRetries:   3,
			RetryBackoff: duration{time.Second},
			LockKey:      "run",
			LockTTL:      duration{6 * time.Hour},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "tradefetch:",
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"run_completed", "run_failed"},
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// DefaultStartTime parses Fetch.DefaultStart.
func (c *Config) DefaultStartTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Fetch.DefaultStart))
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch: default_start: %w", err)
	}
	return t.UTC(), nil
}

// SelectedPlatforms parses Fetch.Platforms. Empty means every venue.
func (c *Config) SelectedPlatforms() ([]domain.Platform, error) {
	out := make([]domain.Platform, 0, len(c.Fetch.Platforms))
	for _, name := range c.Fetch.Platforms {
		p, err := domain.ParsePlatform(name)
		if err != nil {
			return nil, fmt.Errorf("fetch: platforms: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Validate checks the Config for logical consistency and returns a combined
// error describing every problem found. It returns nil when the
// configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("schedule %q: %v", c.Schedule, err))
		}
	}

	// Storage
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			errs = append(errs, "sqlite: path must not be empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: postgres, sqlite)", c.Storage.Driver))
	}

	// Users
	switch c.Users.Source {
	case "mongo":
		if c.Users.MongoURI == "" {
			errs = append(errs, "users: mongo_uri must not be empty")
		}
		if c.Users.MongoDatabase == "" {
			errs = append(errs, "users: mongo_database must not be empty")
		}
	case "file":
		if c.Users.File == "" {
			errs = append(errs, "users: file must not be empty when source is file")
		}
	default:
		errs = append(errs, fmt.Sprintf("users: unknown source %q (valid: mongo, file)", c.Users.Source))
	}

	// Venues
	if c.Hyperliquid.BaseURL == "" {
		errs = append(errs, "hyperliquid: base_url must not be empty")
	}
	if c.Hyperliquid.MinInterval.Duration <= 0 {
		errs = append(errs, "hyperliquid: min_interval must be > 0")
	}
	if c.Hyperliquid.Interval.Duration < c.Hyperliquid.MinInterval.Duration {
		errs = append(errs, "hyperliquid: interval must be >= min_interval")
	}
	if c.Hyperliquid.FillsLimit < 1 {
		errs = append(errs, "hyperliquid: fills_limit must be >= 1")
	}
	if c.Orderly.BaseURL == "" {
		errs = append(errs, "orderly: base_url must not be empty")
	}
	if c.Orderly.PageSize < 1 {
		errs = append(errs, "orderly: page_size must be >= 1")
	}

	// Fetch
	if _, err := c.DefaultStartTime(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := c.SelectedPlatforms(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Fetch.BatchSize < 1 {
		errs = append(errs, "fetch: batch_size must be >= 1")
	}
	if c.Fetch.MaxRetries < 1 {
		errs = append(errs, "fetch: max_retries must be >= 1")
	}
	if c.Fetch.WalletDelay.Duration < 0 {
		errs = append(errs, "fetch: wallet_delay must not be negative")
	}

	// Optional backends
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
