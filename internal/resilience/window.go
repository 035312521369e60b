// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package resilience

import "sync"

// callWindow is a count-based sliding window over the outcomes of the last
// size calls.
type callWindow struct {
	mu sync.Mutex

	failed []bool
	slow   []bool
	next   int
	filled int

	failures  int
	slowCalls int
}

func newCallWindow(size int) *callWindow {
	if size < 1 {
		size = 1
	}
	return &callWindow{
		failed: make([]bool, size),
		slow:   make([]bool, size),
	}
}

// record adds one outcome, evicting the oldest once the window is full.
func (w *callWindow) record(failed, slow bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == len(w.failed) {
		if w.failed[w.next] {
			w.failures--
		}
		if w.slow[w.next] {
			w.slowCalls--
		}
	} else {
		w.filled++
	}

	w.failed[w.next] = failed
	w.slow[w.next] = slow
	if failed {
		w.failures++
	}
	if slow {
		w.slowCalls++
	}
	w.next = (w.next + 1) % len(w.failed)
}

// snapshot returns the number of recorded calls and the failure and slow-call
// rates as percentages.
func (w *callWindow) snapshot() (calls int, failureRate, slowRate float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == 0 {
		return 0, 0, 0
	}
	n := float64(w.filled)
	return w.filled, float64(w.failures) / n * 100, float64(w.slowCalls) / n * 100
}

func (w *callWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.failed {
		w.failed[i] = false
		w.slow[i] = false
	}
	w.next, w.filled, w.failures, w.slowCalls = 0, 0, 0, 0
}
