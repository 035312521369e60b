// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"

	"github.com/tomtom215/swipedeck/internal/models"
)

// Default page sizes used when the reader is built with zero values.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Reader serves cached decks. It never blocks on a rebuild: a missing deck
// or a deck holding stale entries is returned as is and a refresh is
// requested. Stale markers for candidates outside the deck do not trigger a
// refresh.
type Reader struct {
	store           DeckStore
	refresher       Refresher
	defaultPageSize int64
	maxPageSize     int64
}

// NewReader creates a reader. refresher may be nil to disable refreshes.
func NewReader(store DeckStore, refresher Refresher, defaultPageSize, maxPageSize int) *Reader {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}
	return &Reader{
		store:           store,
		refresher:       refresher,
		defaultPageSize: int64(defaultPageSize),
		maxPageSize:     int64(maxPageSize),
	}
}

// Page returns entries [offset, offset+limit) of the viewer's deck, best
// first. limit <= 0 selects the default page size and is capped at the max.
func (r *Reader) Page(ctx context.Context, viewerID string, offset, limit int64) models.DeckPage {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = r.defaultPageSize
	}
	if limit > r.maxPageSize {
		limit = r.maxPageSize
	}

	page := models.DeckPage{
		ViewerID: viewerID,
		Offset:   offset,
		Limit:    limit,
		Entries:  []models.DeckPageItem{},
	}

	page.Total = r.store.Size(ctx, viewerID)
	if builtAt, ok := r.store.BuildInstant(ctx, viewerID); ok {
		page.BuiltAt = &builtAt
	}

	stale := make(map[string]struct{})
	if page.Total > 0 {
		for _, id := range r.store.StaleInDeck(ctx, viewerID) {
			stale[id] = struct{}{}
		}
		for _, e := range r.store.ReadDeck(ctx, viewerID, offset, limit) {
			_, isStale := stale[e.CandidateID]
			page.Entries = append(page.Entries, models.DeckPageItem{DeckEntry: e, Stale: isStale})
		}
	}

	if (page.Total == 0 || len(stale) > 0) && r.refresher != nil {
		page.Refreshing = r.refresher.Refresh(viewerID)
	}

	return page
}
