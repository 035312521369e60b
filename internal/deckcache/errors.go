// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deckcache

import "errors"

var (
	// ErrEmptyViewerID is returned by writes addressed to an empty viewer ID.
	ErrEmptyViewerID = errors.New("deckcache: empty viewer id")

	// ErrInvalidTTL is returned when a write is given a non-positive TTL.
	// Redis treats EXPIRE 0 as an immediate delete.
	ErrInvalidTTL = errors.New("deckcache: ttl must be positive")
)
