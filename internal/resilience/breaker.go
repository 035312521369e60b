// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package resilience

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/metrics"
)

// breaker adapts gobreaker to a count-based sliding window with both a
// failure-rate and a slow-call-rate threshold.
//
// gobreaker's own Counts are cumulative between state changes, so the trip
// decision is taken from callWindow instead. Slow successful calls are
// reported to gobreaker as errSlowCall so that ReadyToTrip is consulted; the
// caller still receives the real result.
type breaker struct {
	name       string
	cb         *gobreaker.CircuitBreaker[any]
	window     *callWindow
	classifier Classifier
	logger     zerolog.Logger

	windowSize    int
	minCalls      int
	failureRate   float64
	slowRate      float64
	slowThreshold time.Duration
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newBreaker(name string, cfg *config.PolicyConfig, classifier Classifier, logger zerolog.Logger) *breaker {
	b := &breaker{
		name:          name,
		window:        newCallWindow(cfg.CircuitBreakerSlidingWindowSize),
		classifier:    classifier,
		logger:        logger,
		windowSize:    cfg.CircuitBreakerSlidingWindowSize,
		minCalls:      cfg.CircuitBreakerMinCalls,
		failureRate:   cfg.CircuitBreakerFailureRateThreshold,
		slowRate:      cfg.CircuitBreakerSlowCallRateThreshold,
		slowThreshold: cfg.CircuitBreakerSlowCallDurationThreshold,
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.CircuitBreakerHalfOpenPermittedCalls,
		Interval:      0, // never clear counts while closed; callWindow owns the statistics
		Timeout:       cfg.CircuitBreakerOpenWaitDuration,
		ReadyToTrip:   b.readyToTrip,
		OnStateChange: b.onStateChange,
		IsSuccessful:  b.isSuccessful,
	})

	return b
}

func (b *breaker) isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, errSlowCall) {
		return false
	}
	return !b.classifier.IsFailure(err)
}

func (b *breaker) readyToTrip(_ gobreaker.Counts) bool {
	calls, failureRate, slowRate := b.window.snapshot()

	minCalls := b.minCalls
	if minCalls > b.windowSize {
		minCalls = b.windowSize
	}
	if calls < minCalls {
		return false
	}

	trip := failureRate >= b.failureRate || slowRate >= b.slowRate
	if trip {
		b.logger.Warn().
			Int("calls", calls).
			Float64("failure_rate", failureRate).
			Float64("slow_call_rate", slowRate).
			Msg("[CIRCUIT BREAKER] Opening circuit")
	}
	return trip
}

func (b *breaker) onStateChange(name string, from, to gobreaker.State) {
	// Each state starts with fresh statistics.
	b.window.reset()

	fromStr, toStr := stateToString(from), stateToString(to)
	b.logger.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
	metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
}

// execute runs fn through the breaker.
func (b *breaker) execute(fn func() (any, error)) (any, error) {
	var (
		result  any
		callErr error
	)

	_, err := b.cb.Execute(func() (any, error) {
		start := time.Now()
		result, callErr = fn()
		slow := time.Since(start) >= b.slowThreshold
		failed := callErr != nil && b.classifier.IsFailure(callErr)
		b.window.record(failed, slow)

		switch {
		case callErr != nil:
			return nil, callErr
		case slow:
			return nil, errSlowCall
		}
		return nil, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, b.name, err)
	case errors.Is(err, errSlowCall):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "slow").Inc()
		return result, nil
	case err != nil:
		if b.classifier.IsFailure(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "ignored").Inc()
		}
		return result, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
