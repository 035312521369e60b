// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/swipedeck/internal/models"
)

const healthCheckTimeout = 2 * time.Second

// HealthLive is a Kubernetes liveness probe. It only reports that the
// process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady is the readiness probe. It returns 503 when Redis is
// unreachable; open breakers downgrade the status but keep serving, since
// deck reads come from the cache.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := models.HealthStatus{
		Status:          "healthy",
		CircuitBreakers: map[string]string{},
		Uptime:          time.Since(h.startTime).Seconds(),
	}

	if h.deps.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		status.RedisConnected = h.deps.Redis.Ping(ctx) == nil
		cancel()
	}
	if h.deps.Breakers != nil {
		status.CircuitBreakers = h.deps.Breakers.States()
	}
	if h.deps.Scheduler != nil {
		status.SchedulerActive = h.deps.Scheduler.IsRunning()
	}

	for _, state := range status.CircuitBreakers {
		if state != "closed" {
			status.Status = "degraded"
			break
		}
	}

	code := http.StatusOK
	if !status.RedisConnected {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	respondSuccess(w, code, status, start, false)
}
