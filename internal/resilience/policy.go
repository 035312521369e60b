// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

// Package resilience protects calls to external dependencies with a fixed
// composition of timeout, retry, circuit breaker and bulkhead.
//
// From the caller's point of view a protected call is:
//
//	bulkhead( breaker( retry( timeout(call) ) ) )
//
// The timeout bounds each attempt, the breaker only sees the outcome of the
// whole retry sequence, and the bulkhead gates admission before anything
// else runs.
//
//	profiles, err := resilience.Execute(ctx, policies.Profiles,
//	    func(ctx context.Context) ([]models.Profile, error) {
//	        return client.SearchProfiles(ctx, viewerID, prefs, limit)
//	    })
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/metrics"
)

// Policy names used for metrics labels and health output.
const (
	PolicyProfiles       = "profiles-http"
	PolicyProfilesActive = "profiles-active"
	PolicySwipes         = "swipes-http"
	PolicyRedis          = "redis"
)

// Policy is the resilience bundle for one dependency class. It is safe for
// concurrent use. A nil *Policy runs calls unprotected.
type Policy struct {
	name       string
	cfg        config.PolicyConfig
	classifier Classifier
	breaker    *breaker
	bulkhead   *bulkhead
	logger     zerolog.Logger
}

// NewPolicy builds a policy from configuration. cfg is assumed validated.
func NewPolicy(name string, cfg config.PolicyConfig, classifier Classifier) *Policy {
	logger := logging.WithComponent("resilience").With().Str("policy", name).Logger()
	return &Policy{
		name:       name,
		cfg:        cfg,
		classifier: classifier,
		breaker:    newBreaker(name, &cfg, classifier, logger),
		bulkhead:   newBulkhead(name, cfg.BulkheadMaxConcurrentCalls, cfg.BulkheadMaxWaitDuration),
		logger:     logger,
	}
}

// Name returns the policy name.
func (p *Policy) Name() string {
	return p.name
}

// State returns the breaker state: closed, half-open or open.
func (p *Policy) State() string {
	return stateToString(p.breaker.state())
}

// Execute runs fn under p. fn receives a context bounded by the per-attempt
// timeout and may be invoked several times.
func Execute[T any](ctx context.Context, p *Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if p == nil {
		return fn(ctx)
	}

	if err := p.bulkhead.acquire(ctx); err != nil {
		return zero, err
	}
	defer p.bulkhead.release()

	result, err := p.breaker.execute(func() (any, error) {
		return p.retry(ctx, func(attemptCtx context.Context) (any, error) {
			return fn(attemptCtx)
		})
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("resilience %s: unexpected result type %T", p.name, result)
	}
	return typed, nil
}

// Do runs fn under p for calls without a result.
func (p *Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := Execute(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// retry runs fn with jittered exponential backoff. Attempts stop early on a
// non-retryable error or when the caller's context ends.
func (p *Policy) retry(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	attempt := func() (any, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()

		result, err := fn(attemptCtx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil || !p.classifier.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	if p.cfg.RetryMaxAttempts <= 1 {
		result, err := attempt()
		return result, unwrapPermanent(err)
	}

	result, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(p.cfg.RetryMaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.RetryAttempts.WithLabelValues(p.name).Inc()
			p.logger.Debug().Err(err).Dur("backoff", next).Msg("Retrying call")
		}),
	)
	return result, unwrapPermanent(err)
}

func (p *Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryInitialInterval
	b.RandomizationFactor = p.cfg.RetryJitter
	b.Multiplier = p.cfg.RetryMultiplier
	if p.cfg.RetryMaxInterval > 0 {
		b.MaxInterval = p.cfg.RetryMaxInterval
	}
	b.Reset()
	return b
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// StreamPolicyConfig derives the policy for one long bulk call against the
// same dependency as base. The single attempt is bounded by timeout instead
// of base's per-call timeout, and only a call slower than timeout counts as
// slow.
func StreamPolicyConfig(base config.PolicyConfig, timeout time.Duration) config.PolicyConfig {
	cfg := base
	if timeout <= 0 {
		return cfg
	}
	cfg.Timeout = timeout
	cfg.RetryMaxAttempts = 1
	cfg.CircuitBreakerSlowCallDurationThreshold = timeout
	return cfg
}

// Registry holds the policies for every dependency class.
type Registry struct {
	Profiles *Policy
	Swipes   *Policy
	Redis    *Policy

	// ProfilesActive guards the active-user stream. It has its own breaker
	// so the long bulk fetch does not skew the search statistics.
	ProfilesActive *Policy
}

// NewRegistry builds the dependency policies. streamTimeout bounds the
// active-user fetch.
func NewRegistry(cfg *config.ResilienceConfig, streamTimeout time.Duration) *Registry {
	return &Registry{
		Profiles:       NewPolicy(PolicyProfiles, cfg.Profiles, HTTPClassifier{}),
		Swipes:         NewPolicy(PolicySwipes, cfg.Swipes, HTTPClassifier{}),
		Redis:          NewPolicy(PolicyRedis, cfg.Redis, RedisClassifier{}),
		ProfilesActive: NewPolicy(PolicyProfilesActive, StreamPolicyConfig(cfg.Profiles, streamTimeout), HTTPClassifier{}),
	}
}

// States returns the breaker state of every policy, keyed by policy name.
func (r *Registry) States() map[string]string {
	return map[string]string{
		r.Profiles.Name():       r.Profiles.State(),
		r.Swipes.Name():         r.Swipes.State(),
		r.Redis.Name():          r.Redis.State(),
		r.ProfilesActive.Name(): r.ProfilesActive.State(),
	}
}
