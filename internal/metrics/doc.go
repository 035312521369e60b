// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

/*
Package metrics provides Prometheus collectors for the deck service.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

Deck pipeline:
  - deck_build_duration_seconds{outcome}: per-viewer build latency
  - deck_builds_total{outcome}: written, empty, failed
  - deck_size_entries: entries per written deck
  - deck_stage_candidates_total{stage}: candidates emitted by search, filter, score
  - deck_stage_fail_open_total{stage}: dependency failures absorbed by a stage

Deck cache:
  - deck_cache_operation_duration_seconds{operation}
  - deck_cache_degraded_reads_total{operation}
  - deck_bucket_cache_hits_total / deck_bucket_cache_misses_total
  - deck_stale_marks_total

Scheduler:
  - deck_scheduler_cycle_duration_seconds
  - deck_scheduler_viewers_dispatched_total
  - deck_refresh_queue_depth, deck_refresh_dropped_total

Resilience:
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}
  - resilience_retry_attempts_total{name}
  - resilience_bulkhead_in_flight{name}, resilience_bulkhead_rejections_total{name}

Events and API:
  - deck_events_processed_total{topic,result}
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
*/
package metrics
