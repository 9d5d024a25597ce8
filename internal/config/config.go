// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Functions that may do I/O accept context.Context as the first parameter.
// - Errors returned to callers wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/ktc/internal/domain/rating"
)

// Recognised values for Store and LogFormat.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// SeedItem is an item created on start when the store is empty.
type SeedItem struct {
	Name  string `koanf:"name"`
	Color string `koanf:"color"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store picks the backend: memory, sqlite or postgres. DSN is passed to
	// the database driver.
	Store string `koanf:"store"`
	DSN   string `koanf:"dsn"`

	// DBMaxOpenConns and DBConnMaxLifetimeSec tune the SQL connection pool.
	// Zero keeps the driver default; SQLite always uses one connection.
	DBMaxOpenConns       int `koanf:"db_max_open_conns"`
	DBConnMaxLifetimeSec int `koanf:"db_conn_max_lifetime_sec"`

	// QueueSize bounds the in-memory recompute queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many vote ids are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// LockStripes sets the number of per-item lock stripes.
	LockStripes int `koanf:"lock_stripes"`

	// HistorySize is the number of recent triplets a session avoids.
	HistorySize int `koanf:"history_size"`

	// SessionTTLSec drops sessions idle for longer.
	SessionTTLSec int `koanf:"session_ttl_sec"`

	// MaxRankingsLimit caps GET /rankings?limit.
	MaxRankingsLimit int `koanf:"max_rankings_limit"`

	// RandomSeed fixes matchup sampling; 0 seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`

	Rating rating.Params `koanf:"rating"`

	SeedItems []SeedItem `koanf:"seed_items"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        LogFormatText,
		Addr:             ":9080",
		Store:            StoreMemory,
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       50_000,
		LockStripes:      64,
		HistorySize:      10,
		SessionTTLSec:    1800,
		MaxRankingsLimit: 100,
		Rating:           rating.DefaultParams(),
	}
}

// DBConnMaxLifetime returns DBConnMaxLifetimeSec as a duration.
func (c *Config) DBConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeSec) * time.Second
}

// SessionTTL returns SessionTTLSec as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

// Validate reports the first unusable setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate(_ context.Context) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fail("addr must not be empty")
	case c.QueueSize < 1:
		return fail("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount < 1:
		return fail("worker_count must be positive, got %d", c.WorkerCount)
	case c.DedupeSize < 1:
		return fail("dedupe_size must be positive, got %d", c.DedupeSize)
	case c.LockStripes < 1:
		return fail("lock_stripes must be positive, got %d", c.LockStripes)
	case c.HistorySize < 1:
		return fail("history_size must be positive, got %d", c.HistorySize)
	case c.SessionTTLSec < 1:
		return fail("session_ttl_sec must be positive, got %d", c.SessionTTLSec)
	case c.DBMaxOpenConns < 0 || c.DBConnMaxLifetimeSec < 0:
		return fail("db pool settings must not be negative")
	case c.MaxRankingsLimit < 1:
		return fail("max_rankings_limit must be positive, got %d", c.MaxRankingsLimit)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fail("log_format must be text or json, got %q", c.LogFormat)
	}

	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DSN == "" {
			return fail("dsn is required for the postgres store")
		}
	default:
		return fail("unknown store %q", c.Store)
	}

	for i, it := range c.SeedItems {
		if strings.TrimSpace(it.Name) == "" {
			return fail("seed_items[%d] has no name", i)
		}
	}

	if err := c.Rating.Validate(); err != nil {
		return fmt.Errorf("%w: rating: %w", ErrInvalidConfig, err)
	}
	return nil
}
