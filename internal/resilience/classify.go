// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/redis/go-redis/v9"
)

// Classifier decides how an error returned by a protected call is treated.
type Classifier interface {
	// IsFailure reports whether err counts toward the circuit breaker's
	// failure rate.
	IsFailure(err error) bool

	// IsRetryable reports whether another attempt may succeed.
	IsRetryable(err error) bool
}

// HTTPClassifier classifies errors from the Profiles and Swipes HTTP clients.
// Connection errors, timeouts, 5xx and 429 are both counted and retried.
type HTTPClassifier struct{}

var _ Classifier = HTTPClassifier{}

func (HTTPClassifier) IsFailure(err error) bool {
	return isTransientHTTP(err)
}

func (HTTPClassifier) IsRetryable(err error) bool {
	return isTransientHTTP(err)
}

func isTransientHTTP(err error) bool {
	if err == nil || IsRejection(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return isTimeout(err) || isConnectionError(err)
}

// RedisClassifier classifies errors from the deck cache. A missing key
// (redis.Nil) is a normal result. Connection failures and timeouts are
// retried; server error replies are counted but not retried.
type RedisClassifier struct{}

var _ Classifier = RedisClassifier{}

func (RedisClassifier) IsFailure(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) || IsRejection(err) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func (RedisClassifier) IsRetryable(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) || IsRejection(err) || errors.Is(err, context.Canceled) {
		return false
	}
	return isTimeout(err) || isConnectionError(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, redis.ErrClosed):
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
