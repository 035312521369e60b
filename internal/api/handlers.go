// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package api

import (
	"context"
	"time"

	"github.com/tomtom215/swipedeck/internal/models"
)

// DeckReader serves deck pages.
type DeckReader interface {
	Page(ctx context.Context, viewerID string, offset, limit int64) models.DeckPage
}

// DeckAdmin is the subset of the deck cache used by the admin endpoints.
type DeckAdmin interface {
	Invalidate(ctx context.Context, viewerID string) (int64, error)
	ActiveViewers(ctx context.Context) []string
}

// Pinger reports Redis reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Refresher enqueues background rebuilds.
type Refresher interface {
	Refresh(viewerID string) bool
}

// BreakerStates reports circuit breaker states by dependency name.
type BreakerStates interface {
	States() map[string]string
}

// SchedulerStatus reports whether the scheduler is running.
type SchedulerStatus interface {
	IsRunning() bool
}

// Dependencies wires the handler. Only Reader is required.
type Dependencies struct {
	Reader    DeckReader
	Admin     DeckAdmin
	Redis     Pinger
	Refresher Refresher
	Breakers  BreakerStates
	Scheduler SchedulerStatus
}

// Handler handles all HTTP API requests
type Handler struct {
	deps      Dependencies
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		deps:      deps,
		startTime: time.Now(),
	}
}
