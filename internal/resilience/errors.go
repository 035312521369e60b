// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package resilience

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call,
	// either because it is open or because the half-open probe quota is used.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrBulkheadFull is returned when no concurrency slot became free within
	// the bulkhead's max wait.
	ErrBulkheadFull = errors.New("bulkhead capacity exceeded")

	// errSlowCall reports a successful but slow call to the breaker. It never
	// reaches callers.
	errSlowCall = errors.New("slow call")
)

// HTTPStatusError is returned by HTTP clients for non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
	Method     string
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Transient reports whether the status indicates an upstream problem
// (5xx or 429) rather than a bad request.
func (e *HTTPStatusError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsRejection reports whether err is a capacity rejection (open circuit or
// full bulkhead). Rejections are never retried and never counted.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrBulkheadFull)
}
