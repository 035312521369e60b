// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateDeck(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateResilience(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Server.RateLimitRequests)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateRedis() error {
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("REDIS_DB must be non-negative, got %d", c.Redis.DB)
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("REDIS_POOL_SIZE must be non-negative, got %d", c.Redis.PoolSize)
	}
	if strings.ContainsAny(c.Redis.KeyPrefix, " {}") {
		return fmt.Errorf("REDIS_KEY_PREFIX must not contain spaces or braces: %q", c.Redis.KeyPrefix)
	}
	return nil
}

func (c *Config) validateServices() error {
	if err := validateHTTPURL(c.Profiles.BaseURL, "PROFILES_URL"); err != nil {
		return err
	}
	return validateHTTPURL(c.Swipes.BaseURL, "SWIPES_URL")
}

func (c *Config) validateDeck() error {
	d := c.Deck
	switch {
	case d.PerUserLimit < 1:
		return fmt.Errorf("DECK_PER_USER_LIMIT must be at least 1, got %d", d.PerUserLimit)
	case d.TTL <= 0:
		return fmt.Errorf("DECK_TTL must be positive, got %s", d.TTL)
	case d.SearchLimit < 1:
		return fmt.Errorf("DECK_SEARCH_LIMIT must be at least 1, got %d", d.SearchLimit)
	case d.FilterBatchSize < 1:
		return fmt.Errorf("DECK_FILTER_BATCH_SIZE must be at least 1, got %d", d.FilterBatchSize)
	case d.ScoringParallelism < 0:
		return fmt.Errorf("DECK_SCORING_PARALLELISM must be non-negative, got %d", d.ScoringParallelism)
	case d.BucketCacheEnabled && d.BucketTTL <= 0:
		return fmt.Errorf("DECK_BUCKET_TTL must be positive when the bucket cache is enabled, got %s", d.BucketTTL)
	case d.DefaultPageSize < 1 || d.MaxPageSize < d.DefaultPageSize:
		return fmt.Errorf("deck page sizes invalid: default=%d max=%d", d.DefaultPageSize, d.MaxPageSize)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	s := c.Scheduler
	if s.Enabled && s.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", s.Interval)
	}
	switch {
	case s.PerUserTimeout <= 0:
		return fmt.Errorf("SCHEDULER_PER_USER_TIMEOUT must be positive, got %s", s.PerUserTimeout)
	case s.StreamTimeout <= 0:
		return fmt.Errorf("SCHEDULER_STREAM_TIMEOUT must be positive, got %s", s.StreamTimeout)
	case s.MaxConcurrentBuilds < 1:
		return fmt.Errorf("SCHEDULER_MAX_CONCURRENT_BUILDS must be at least 1, got %d", s.MaxConcurrentBuilds)
	case s.BuildsPerSecond < 0:
		return fmt.Errorf("SCHEDULER_BUILDS_PER_SECOND must be non-negative, got %v", s.BuildsPerSecond)
	case s.RefreshQueueSize < 1:
		return fmt.Errorf("SCHEDULER_REFRESH_QUEUE_SIZE must be at least 1, got %d", s.RefreshQueueSize)
	case s.RefreshWorkers < 1:
		return fmt.Errorf("SCHEDULER_REFRESH_WORKERS must be at least 1, got %d", s.RefreshWorkers)
	}
	return nil
}

func (c *Config) validateEvents() error {
	e := c.Events
	if !e.Enabled {
		return nil
	}
	if err := validateNATSURL(e.NATSURL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if e.SwipeCreatedTopic == "" || e.ProfileUpdatedTopic == "" || e.ProfileDeletedTopic == "" {
		return fmt.Errorf("event topics must not be empty when events are enabled")
	}
	if e.SubscribersCount < 1 {
		return fmt.Errorf("EVENTS_SUBSCRIBERS must be at least 1, got %d", e.SubscribersCount)
	}
	if e.RetryCount < 0 {
		return fmt.Errorf("EVENTS_RETRY_COUNT must be non-negative, got %d", e.RetryCount)
	}
	return nil
}

func (c *Config) validateResilience() error {
	for name, p := range map[string]PolicyConfig{
		"profiles": c.Resilience.Profiles,
		"swipes":   c.Resilience.Swipes,
		"redis":    c.Resilience.Redis,
	} {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("resilience.%s: %w", name, err)
		}
	}
	return nil
}

// Validate checks a single resilience policy.
func (p *PolicyConfig) Validate() error {
	switch {
	case p.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", p.Timeout)
	case p.RetryMaxAttempts < 1:
		return fmt.Errorf("retry_max_attempts must be at least 1, got %d", p.RetryMaxAttempts)
	case p.RetryMultiplier < 1:
		return fmt.Errorf("retry_multiplier must be >= 1, got %v", p.RetryMultiplier)
	case p.RetryJitter < 0 || p.RetryJitter >= 1:
		return fmt.Errorf("retry_jitter must be in [0,1), got %v", p.RetryJitter)
	case p.CircuitBreakerSlidingWindowSize < 1:
		return fmt.Errorf("circuit_breaker_sliding_window_size must be at least 1, got %d", p.CircuitBreakerSlidingWindowSize)
	case p.CircuitBreakerMinCalls < 1:
		return fmt.Errorf("circuit_breaker_min_calls must be at least 1, got %d", p.CircuitBreakerMinCalls)
	case !validRate(p.CircuitBreakerFailureRateThreshold):
		return fmt.Errorf("circuit_breaker_failure_rate_threshold must be in (0,100], got %v", p.CircuitBreakerFailureRateThreshold)
	case !validRate(p.CircuitBreakerSlowCallRateThreshold):
		return fmt.Errorf("circuit_breaker_slow_call_rate_threshold must be in (0,100], got %v", p.CircuitBreakerSlowCallRateThreshold)
	case p.CircuitBreakerSlowCallDurationThreshold <= 0:
		return fmt.Errorf("circuit_breaker_slow_call_duration_threshold must be positive")
	case p.CircuitBreakerHalfOpenPermittedCalls < 1:
		return fmt.Errorf("circuit_breaker_half_open_permitted_calls must be at least 1")
	case p.CircuitBreakerOpenWaitDuration <= 0:
		return fmt.Errorf("circuit_breaker_open_wait_duration must be positive")
	case p.BulkheadMaxConcurrentCalls < 1:
		return fmt.Errorf("bulkhead_max_concurrent_calls must be at least 1, got %d", p.BulkheadMaxConcurrentCalls)
	case p.BulkheadMaxWaitDuration < 0:
		return fmt.Errorf("bulkhead_max_wait_duration must be non-negative")
	}
	return nil
}

func validRate(v float64) bool {
	return v > 0 && v <= 100
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console; got %q", c.Logging.Format)
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
