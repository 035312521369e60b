// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/swipedeck/internal/config"
)

// NewRouter configures the Chi router with all routes.
func NewRouter(h *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.Route("/decks", func(r chi.Router) {
			r.Use(RateLimit(cfg))
			r.Use(PrometheusMetrics)

			r.Get("/", h.ListDecks)
			r.Get("/{viewerID}", h.GetDeck)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdminToken(cfg.AdminToken))
				r.Post("/{viewerID}/rebuild", h.RebuildDeck)
				r.Delete("/{viewerID}", h.InvalidateDeck)
			})
		})
	})

	return r
}
