// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package config

import (
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting (see defaultConfig)
//  2. Config File: optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	rdb := deckcache.NewRedisClient(&cfg.Redis)
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Redis      RedisConfig      `koanf:"redis"`
	Profiles   ServiceConfig    `koanf:"profiles"`
	Swipes     ServiceConfig    `koanf:"swipes"`
	Deck       DeckConfig       `koanf:"deck"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Events     EventsConfig     `koanf:"events"`
	Resilience ResilienceConfig `koanf:"resilience"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP surface (health, metrics, deck reads).
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSAllowedOrigins is empty by default, which disables cross-origin reads.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindow, per client IP, on the deck endpoints.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// AdminToken guards the rebuild and invalidate endpoints. Empty leaves
	// them open.
	AdminToken string `koanf:"admin_token"`
}

// RedisConfig configures the connection to the deck cache.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"` // 0 = go-redis default (10 per CPU)
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// KeyPrefix namespaces every key written by the deck cache.
	KeyPrefix string `koanf:"key_prefix"`
}

// ServiceConfig points at an upstream HTTP collaborator (Profiles or Swipes).
// Per-call timeouts come from the matching resilience policy.
type ServiceConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"` // Sent as a bearer token when set
}

// DeckConfig controls how decks are built and cached.
type DeckConfig struct {
	// PerUserLimit caps the number of entries stored per viewer.
	PerUserLimit int `koanf:"per_user_limit"`

	// TTL applies to the deck, its build timestamp and its stale markers.
	TTL time.Duration `koanf:"ttl"`

	// SearchLimit is the candidate pool size requested from Profiles.
	SearchLimit int `koanf:"search_limit"`

	// FilterBatchSize is the number of candidates per swipe lookup.
	FilterBatchSize int `koanf:"filter_batch_size"`

	// ScoringParallelism bounds the scoring worker pool (0 = runtime.NumCPU()).
	ScoringParallelism int `koanf:"scoring_parallelism"`

	BucketCacheEnabled bool          `koanf:"bucket_cache_enabled"`
	BucketTTL          time.Duration `koanf:"bucket_ttl"`

	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SchedulerConfig controls the periodic rebuild and the on-demand refresh queue.
type SchedulerConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Interval       time.Duration `koanf:"interval"`
	RunOnStartup   bool          `koanf:"run_on_startup"`
	PerUserTimeout time.Duration `koanf:"per_user_timeout"`
	StreamTimeout  time.Duration `koanf:"stream_timeout"`

	// MaxConcurrentBuilds bounds in-flight viewer builds per cycle.
	MaxConcurrentBuilds int `koanf:"max_concurrent_builds"`

	// BuildsPerSecond paces build dispatch (0 = unpaced).
	BuildsPerSecond float64 `koanf:"builds_per_second"`

	RefreshQueueSize int `koanf:"refresh_queue_size"`
	RefreshWorkers   int `koanf:"refresh_workers"`
}

// EventsConfig configures the change-event consumers (Watermill over NATS JetStream).
type EventsConfig struct {
	Enabled          bool   `koanf:"enabled"`
	NATSURL          string `koanf:"nats_url"`
	StreamName       string `koanf:"stream_name"`
	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`

	SwipeCreatedTopic   string `koanf:"swipe_created_topic"`
	ProfileUpdatedTopic string `koanf:"profile_updated_topic"`
	ProfileDeletedTopic string `koanf:"profile_deleted_topic"`

	// MarkStaleOnDelete fans a stale marker out to every active deck when
	// a profile is deleted.
	MarkStaleOnDelete bool `koanf:"mark_stale_on_delete"`

	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// ResilienceConfig holds one policy per dependency class.
type ResilienceConfig struct {
	Profiles PolicyConfig `koanf:"profiles"`
	Swipes   PolicyConfig `koanf:"swipes"`
	Redis    PolicyConfig `koanf:"redis"`
}

// PolicyConfig is the timeout, retry, circuit breaker and bulkhead bundle
// applied to every call of one dependency class.
//
// Rate thresholds are percentages (0-100].
type PolicyConfig struct {
	Timeout time.Duration `koanf:"timeout"`

	RetryMaxAttempts     int           `koanf:"retry_max_attempts"` // total attempts, including the first
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMultiplier      float64       `koanf:"retry_multiplier"`
	RetryJitter          float64       `koanf:"retry_jitter"` // randomization factor [0,1)
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`

	CircuitBreakerSlidingWindowSize         int           `koanf:"circuit_breaker_sliding_window_size"`
	CircuitBreakerMinCalls                  int           `koanf:"circuit_breaker_min_calls"`
	CircuitBreakerFailureRateThreshold      float64       `koanf:"circuit_breaker_failure_rate_threshold"`
	CircuitBreakerSlowCallRateThreshold     float64       `koanf:"circuit_breaker_slow_call_rate_threshold"`
	CircuitBreakerSlowCallDurationThreshold time.Duration `koanf:"circuit_breaker_slow_call_duration_threshold"`
	CircuitBreakerHalfOpenPermittedCalls    uint32        `koanf:"circuit_breaker_half_open_permitted_calls"`
	CircuitBreakerOpenWaitDuration          time.Duration `koanf:"circuit_breaker_open_wait_duration"`

	BulkheadMaxConcurrentCalls int           `koanf:"bulkhead_max_concurrent_calls"`
	BulkheadMaxWaitDuration    time.Duration `koanf:"bulkhead_max_wait_duration"`
}

// SupervisorConfig tunes restart behavior of the supervisor tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load reads configuration using the layered Koanf loader:
//  1. Built-in defaults
//  2. Config file (config.yaml if present, or CONFIG_PATH)
//  3. Environment variables
func Load() (*Config, error) {
	return LoadWithKoanf()
}
