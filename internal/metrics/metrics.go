// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Build outcomes used as the "outcome" label of DeckBuildsTotal.
const (
	BuildOutcomeWritten = "written"
	BuildOutcomeEmpty   = "empty"
	BuildOutcomeFailed  = "failed"
)

var (
	// Deck pipeline

	DeckBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deck_build_duration_seconds",
			Help:    "Duration of a single viewer deck build",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	DeckBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_builds_total",
			Help: "Total number of deck builds by outcome (written, empty, failed)",
		},
		[]string{"outcome"},
	)

	DeckSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deck_size_entries",
			Help:    "Number of entries written per deck",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	DeckStageCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_stage_candidates_total",
			Help: "Candidates emitted by each pipeline stage",
		},
		[]string{"stage"}, // search, filter, score
	)

	DeckStageFailOpen = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_stage_fail_open_total",
			Help: "Times a stage failed open after a dependency error",
		},
		[]string{"stage"},
	)

	// Deck cache

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deck_cache_operation_duration_seconds",
			Help:    "Duration of deck cache operations",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	CacheDegradedReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_cache_degraded_reads_total",
			Help: "Cache reads that returned an empty default because Redis was unavailable",
		},
		[]string{"operation"},
	)

	BucketCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deck_bucket_cache_hits_total",
			Help: "Preference bucket lookups served from the cache",
		},
	)

	BucketCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deck_bucket_cache_misses_total",
			Help: "Preference bucket lookups that required a remote search",
		},
	)

	StaleMarksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deck_stale_marks_total",
			Help: "Stale markers written by fan-out operations",
		},
	)

	// Scheduler

	SchedulerCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deck_scheduler_cycle_duration_seconds",
			Help:    "Duration of a full scheduler cycle",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	SchedulerViewersDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deck_scheduler_viewers_dispatched_total",
			Help: "Viewer builds dispatched by the scheduler",
		},
	)

	SchedulerRefreshQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deck_refresh_queue_depth",
			Help: "Pending on-demand deck refreshes",
		},
	)

	SchedulerRefreshDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deck_refresh_dropped_total",
			Help: "On-demand refreshes dropped because the queue was full",
		},
	)

	// Change events

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_events_processed_total",
			Help: "Change events handled by topic and result",
		},
		[]string{"topic", "result"}, // result: ok, malformed, error
	)

	// HTTP API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Resilience

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, ignored, slow, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_retry_attempts_total",
			Help: "Retries issued after a retryable failure",
		},
		[]string{"name"},
	)

	BulkheadInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resilience_bulkhead_in_flight",
			Help: "Calls currently admitted by the bulkhead",
		},
		[]string{"name"},
	)

	BulkheadRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_bulkhead_rejections_total",
			Help: "Calls rejected because the bulkhead was full",
		},
		[]string{"name"},
	)
)

// RecordDeckBuild records the outcome of one viewer build.
func RecordDeckBuild(outcome string, duration time.Duration, size int) {
	DeckBuildsTotal.WithLabelValues(outcome).Inc()
	DeckBuildDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome == BuildOutcomeWritten {
		DeckSize.Observe(float64(size))
	}
}

// RecordCacheOperation records the latency of a cache operation.
func RecordCacheOperation(operation string, duration time.Duration) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEvent records a handled change event.
func RecordEvent(topic, result string) {
	EventsProcessed.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
