// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/swipedeck/config.yaml",
	"/etc/swipedeck/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultHTTPPolicy returns the resilience defaults for an upstream HTTP service.
func defaultHTTPPolicy() PolicyConfig {
	return PolicyConfig{
		Timeout:                                 2 * time.Second,
		RetryMaxAttempts:                        3,
		RetryInitialInterval:                    100 * time.Millisecond,
		RetryMultiplier:                         2.0,
		RetryJitter:                             0.5,
		RetryMaxInterval:                        2 * time.Second,
		CircuitBreakerSlidingWindowSize:         20,
		CircuitBreakerMinCalls:                  10,
		CircuitBreakerFailureRateThreshold:      50,
		CircuitBreakerSlowCallRateThreshold:     80,
		CircuitBreakerSlowCallDurationThreshold: 1500 * time.Millisecond,
		CircuitBreakerHalfOpenPermittedCalls:    3,
		CircuitBreakerOpenWaitDuration:          30 * time.Second,
		BulkheadMaxConcurrentCalls:              50,
		BulkheadMaxWaitDuration:                 250 * time.Millisecond,
	}
}

// Defaults returns the built-in configuration without reading any file or
// environment variable.
func Defaults() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	swipes := defaultHTTPPolicy()
	swipes.Timeout = time.Second
	swipes.CircuitBreakerSlowCallDurationThreshold = 800 * time.Millisecond

	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 15 * time.Second,

			CORSAllowedOrigins: []string{},
			RateLimitRequests:  600,
			RateLimitWindow:    time.Minute,
		},
		Redis: RedisConfig{
			Addr:         "127.0.0.1:6379",
			DB:           0,
			PoolSize:     0,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			KeyPrefix:    "swipedeck",
		},
		Profiles: ServiceConfig{
			BaseURL: "http://127.0.0.1:8081",
		},
		Swipes: ServiceConfig{
			BaseURL: "http://127.0.0.1:8082",
		},
		Deck: DeckConfig{
			PerUserLimit:       100,
			TTL:                24 * time.Hour,
			SearchLimit:        500,
			FilterBatchSize:    200,
			ScoringParallelism: 0, // runtime.NumCPU()
			BucketCacheEnabled: true,
			BucketTTL:          5 * time.Minute,
			DefaultPageSize:    20,
			MaxPageSize:        100,
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			Interval:            15 * time.Minute,
			RunOnStartup:        false,
			PerUserTimeout:      30 * time.Second,
			StreamTimeout:       60 * time.Second,
			MaxConcurrentBuilds: 32,
			BuildsPerSecond:     0, // unpaced
			RefreshQueueSize:    1024,
			RefreshWorkers:      4,
		},
		Events: EventsConfig{
			Enabled:              false,
			NATSURL:              "nats://127.0.0.1:4222",
			StreamName:           "SWIPEDECK",
			DurableName:          "deck-cache",
			QueueGroup:           "deck-cache",
			SubscribersCount:     2,
			SwipeCreatedTopic:    "swipes.created",
			ProfileUpdatedTopic:  "profiles.updated",
			ProfileDeletedTopic:  "profiles.deleted",
			MarkStaleOnDelete:    true,
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			CloseTimeout:         30 * time.Second,
		},
		Resilience: ResilienceConfig{
			Profiles: defaultHTTPPolicy(),
			Swipes:   swipes,
			Redis: PolicyConfig{
				Timeout:                                 500 * time.Millisecond,
				RetryMaxAttempts:                        2,
				RetryInitialInterval:                    50 * time.Millisecond,
				RetryMultiplier:                         2.0,
				RetryJitter:                             0.5,
				RetryMaxInterval:                        500 * time.Millisecond,
				CircuitBreakerSlidingWindowSize:         50,
				CircuitBreakerMinCalls:                  20,
				CircuitBreakerFailureRateThreshold:      50,
				CircuitBreakerSlowCallRateThreshold:     80,
				CircuitBreakerSlowCallDurationThreshold: 250 * time.Millisecond,
				CircuitBreakerHalfOpenPermittedCalls:    5,
				CircuitBreakerOpenWaitDuration:          10 * time.Second,
				BulkheadMaxConcurrentCalls:              200,
				BulkheadMaxWaitDuration:                 100 * time.Millisecond,
			},
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, else the first default
// path that exists, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists the paths parsed as comma-separated slices when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_allowed_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps flat environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_allowed_origins":  "server.cors_allowed_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"rate_limit_disabled":   "server.rate_limit_disabled",
	"admin_token":           "server.admin_token",

	"redis_addr":          "redis.addr",
	"redis_username":      "redis.username",
	"redis_password":      "redis.password",
	"redis_db":            "redis.db",
	"redis_pool_size":     "redis.pool_size",
	"redis_dial_timeout":  "redis.dial_timeout",
	"redis_read_timeout":  "redis.read_timeout",
	"redis_write_timeout": "redis.write_timeout",
	"redis_key_prefix":    "redis.key_prefix",

	"profiles_url":     "profiles.base_url",
	"profiles_api_key": "profiles.api_key",
	"swipes_url":       "swipes.base_url",
	"swipes_api_key":   "swipes.api_key",

	"deck_per_user_limit":       "deck.per_user_limit",
	"deck_ttl":                  "deck.ttl",
	"deck_search_limit":         "deck.search_limit",
	"deck_filter_batch_size":    "deck.filter_batch_size",
	"deck_scoring_parallelism":  "deck.scoring_parallelism",
	"deck_bucket_cache_enabled": "deck.bucket_cache_enabled",
	"deck_bucket_ttl":           "deck.bucket_ttl",
	"deck_default_page_size":    "deck.default_page_size",
	"deck_max_page_size":        "deck.max_page_size",

	"scheduler_enabled":               "scheduler.enabled",
	"scheduler_interval":              "scheduler.interval",
	"scheduler_run_on_startup":        "scheduler.run_on_startup",
	"scheduler_per_user_timeout":      "scheduler.per_user_timeout",
	"scheduler_stream_timeout":        "scheduler.stream_timeout",
	"scheduler_max_concurrent_builds": "scheduler.max_concurrent_builds",
	"scheduler_builds_per_second":     "scheduler.builds_per_second",
	"scheduler_refresh_queue_size":    "scheduler.refresh_queue_size",
	"scheduler_refresh_workers":       "scheduler.refresh_workers",

	"events_enabled":               "events.enabled",
	"nats_url":                     "events.nats_url",
	"events_stream_name":           "events.stream_name",
	"events_durable_name":          "events.durable_name",
	"events_queue_group":           "events.queue_group",
	"events_subscribers":           "events.subscribers_count",
	"events_swipe_created_topic":   "events.swipe_created_topic",
	"events_profile_updated_topic": "events.profile_updated_topic",
	"events_profile_deleted_topic": "events.profile_deleted_topic",
	"events_mark_stale_on_delete":  "events.mark_stale_on_delete",
	"events_retry_count":           "events.retry_count",
	"events_retry_interval":        "events.retry_initial_interval",
	"events_close_timeout":         "events.close_timeout",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// policyEnvFields maps the suffix of RESILIENCE_<CLASS>_<FIELD> variables to
// PolicyConfig keys.
var policyEnvFields = map[string]string{
	"timeout":                "timeout",
	"retry_max_attempts":     "retry_max_attempts",
	"retry_initial_interval": "retry_initial_interval",
	"retry_multiplier":       "retry_multiplier",
	"retry_jitter":           "retry_jitter",
	"retry_max_interval":     "retry_max_interval",
	"cb_window_size":         "circuit_breaker_sliding_window_size",
	"cb_min_calls":           "circuit_breaker_min_calls",
	"cb_failure_rate":        "circuit_breaker_failure_rate_threshold",
	"cb_slow_call_rate":      "circuit_breaker_slow_call_rate_threshold",
	"cb_slow_call_duration":  "circuit_breaker_slow_call_duration_threshold",
	"cb_half_open_calls":     "circuit_breaker_half_open_permitted_calls",
	"cb_open_wait":           "circuit_breaker_open_wait_duration",
	"bulkhead_max_calls":     "bulkhead_max_concurrent_calls",
	"bulkhead_max_wait":      "bulkhead_max_wait_duration",
}

// envTransformFunc maps environment variable names to koanf paths.
//
//	HTTP_PORT                         -> server.port
//	RESILIENCE_REDIS_TIMEOUT          -> resilience.redis.timeout
//	RESILIENCE_PROFILES_CB_OPEN_WAIT  -> resilience.profiles.circuit_breaker_open_wait_duration
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	if rest, ok := strings.CutPrefix(key, "resilience_"); ok {
		for _, class := range []string{"profiles", "swipes", "redis"} {
			field, ok := strings.CutPrefix(rest, class+"_")
			if !ok {
				continue
			}
			if mapped, ok := policyEnvFields[field]; ok {
				return "resilience." + class + "." + mapped
			}
		}
	}

	return ""
}
