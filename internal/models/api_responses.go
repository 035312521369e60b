// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package models

import (
	"time"
)

// APIResponse is the envelope used by every HTTP endpoint.
//
// Status is "success" (see Data) or "error" (see Error).
//
//	{
//	  "status": "success",
//	  "data": {"viewer_id": "u1", "entries": [...]},
//	  "metadata": {"timestamp": "2026-01-28T12:00:00Z", "query_time_ms": 3, "cached": true}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing. Cached is true when the payload was
// served from the deck cache rather than computed for the request.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is the machine-readable error payload.
//
// Codes used by the service:
//   - VALIDATION_ERROR: invalid path or query parameters
//   - CACHE_ERROR: the deck cache rejected a write
//   - QUEUE_FULL: a background rebuild could not be scheduled
//   - NOT_FOUND: unknown route
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the payload of the readiness endpoint.
type HealthStatus struct {
	Status          string            `json:"status"`
	RedisConnected  bool              `json:"redis_connected"`
	CircuitBreakers map[string]string `json:"circuit_breakers"`
	SchedulerActive bool              `json:"scheduler_active"`
	Uptime          float64           `json:"uptime_seconds"`
}
