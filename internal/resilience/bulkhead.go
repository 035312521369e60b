// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package resilience

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/swipedeck/internal/metrics"
)

// bulkhead caps concurrent calls to one dependency class.
type bulkhead struct {
	name    string
	sem     *semaphore.Weighted
	maxWait time.Duration
}

func newBulkhead(name string, maxConcurrent int, maxWait time.Duration) *bulkhead {
	return &bulkhead{
		name:    name,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		maxWait: maxWait,
	}
}

// acquire takes a slot, waiting at most maxWait. It returns ErrBulkheadFull
// on timeout, or ctx.Err() if the caller's context ended first.
func (b *bulkhead) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		metrics.BulkheadInFlight.WithLabelValues(b.name).Inc()
		return nil
	}
	if b.maxWait <= 0 {
		return b.reject()
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.maxWait)
	defer cancel()

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return b.reject()
	}
	metrics.BulkheadInFlight.WithLabelValues(b.name).Inc()
	return nil
}

func (b *bulkhead) release() {
	b.sem.Release(1)
	metrics.BulkheadInFlight.WithLabelValues(b.name).Dec()
}

func (b *bulkhead) reject() error {
	metrics.BulkheadRejections.WithLabelValues(b.name).Inc()
	return fmt.Errorf("%w: %s", ErrBulkheadFull, b.name)
}
