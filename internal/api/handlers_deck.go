// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/swipedeck/internal/logging"
)

// deckPageRequest holds validated path and query parameters of a deck read.
type deckPageRequest struct {
	ViewerID string `validate:"required,max=128"`
	Offset   int64  `validate:"min=0"`
	Limit    int64  `validate:"min=0,max=1000"`
}

type viewerRequest struct {
	ViewerID string `validate:"required,max=128"`
}

// GetDeck handles GET /api/v1/decks/{viewerID}.
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	offset, err := parseInt64Param(r, "offset", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	limit, err := parseInt64Param(r, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	req := deckPageRequest{
		ViewerID: chi.URLParam(r, "viewerID"),
		Offset:   offset,
		Limit:    limit,
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	page := h.deps.Reader.Page(r.Context(), req.ViewerID, req.Offset, req.Limit)
	respondSuccess(w, http.StatusOK, page, start, page.Total > 0)
}

// RebuildDeck handles POST /api/v1/decks/{viewerID}/rebuild. The build runs
// in the background; 202 means it was queued or already pending.
func (h *Handler) RebuildDeck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := viewerRequest{ViewerID: chi.URLParam(r, "viewerID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if h.deps.Refresher == nil || !h.deps.Refresher.Refresh(req.ViewerID) {
		respondError(w, http.StatusServiceUnavailable, "QUEUE_FULL", "Rebuild queue is full, retry later", nil)
		return
	}

	logging.Ctx(r.Context()).Info().Str("viewer_id", sanitizeLogValue(req.ViewerID)).Msg("Deck rebuild requested")
	respondSuccess(w, http.StatusAccepted, map[string]interface{}{
		"viewer_id": req.ViewerID,
		"queued":    true,
	}, start, false)
}

// InvalidateDeck handles DELETE /api/v1/decks/{viewerID}.
func (h *Handler) InvalidateDeck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := viewerRequest{ViewerID: chi.URLParam(r, "viewerID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if h.deps.Admin == nil {
		respondError(w, http.StatusServiceUnavailable, "CACHE_ERROR", "Deck cache unavailable", nil)
		return
	}

	removed, err := h.deps.Admin.Invalidate(r.Context(), req.ViewerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CACHE_ERROR", "Failed to invalidate deck", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"viewer_id":    req.ViewerID,
		"keys_removed": removed,
	}, start, false)
}

// ListDecks handles GET /api/v1/decks.
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	viewers := []string{}
	if h.deps.Admin != nil {
		if active := h.deps.Admin.ActiveViewers(r.Context()); active != nil {
			viewers = active
		}
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"viewers": viewers,
		"count":   len(viewers),
	}, start, true)
}
