// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite snapshot store.
	DBPath string `koanf:"db_path"`

	// GuildID is the roster tracked by the scheduled update cycle.
	GuildID string `koanf:"guild_id"`

	// APIKey authenticates outbound game-API requests.
	APIKey string `koanf:"api_key"`

	// APIBaseURL points at the game API.
	APIBaseURL string `koanf:"api_base_url"`

	// UpdateInterval is the coarse ingestion cadence. Zero disables the
	// internal ticker, leaving cycles to be triggered over HTTP.
	UpdateInterval time.Duration `koanf:"update_interval"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory ingestion job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the job deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// CatalogPath optionally overrides the embedded metric catalog.
	CatalogPath string `koanf:"catalog_path"`

	// BestiaryPath optionally overrides the embedded bestiary taxonomy.
	BestiaryPath string `koanf:"bestiary_path"`

	// BeaconURL points at a drand-style public randomness endpoint.
	BeaconURL string `koanf:"beacon_url"`

	// BeaconGenesis and BeaconPeriod describe the beacon chain so rounds
	// can be derived from timestamps.
	BeaconGenesis int64         `koanf:"beacon_genesis"`
	BeaconPeriod  time.Duration `koanf:"beacon_period"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DBPath:              "leaderboard.db",
		APIBaseURL:          "https://api.hypixel.net",
		UpdateInterval:      15 * time.Minute,
		WorkerCount:         runtime.NumCPU() * 2,
		QueueSize:           10_000,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		BeaconURL:           "https://api.drand.sh",
		BeaconGenesis:       1595431050,
		BeaconPeriod:        30 * time.Second,
	}
}
