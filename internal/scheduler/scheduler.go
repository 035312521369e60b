// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

/*
Package scheduler drives deck builds.

Two entry points feed the same pipeline:

  - A periodic cycle fetches every active user and dispatches one build per
    user. Builds run concurrently, bounded by MaxConcurrentBuilds and
    optionally paced by BuildsPerSecond. Each build has its own timeout so a
    hanging viewer cannot hold the batch; the cycle waits for every
    dispatched build before it reports.
  - Refresh enqueues a single viewer on a deduplicating queue served by a
    small worker pool. The serve-stale read path and the admin API use it.

Only one cycle runs at a time. A tick that fires while a cycle is still in
flight is skipped.
*/
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/deck"
	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/metrics"
	"github.com/tomtom215/swipedeck/internal/models"
	"github.com/tomtom215/swipedeck/internal/resilience"
)

var (
	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler is already running")

	// ErrNotRunning is returned by Stop on a stopped scheduler.
	ErrNotRunning = errors.New("scheduler is not running")
)

// ProfileSource is the part of the Profiles client used by the scheduler.
type ProfileSource interface {
	GetActiveUsers(ctx context.Context) ([]models.Profile, error)
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

// Builder builds one viewer's deck. *deck.Pipeline satisfies it.
type Builder interface {
	BuildDeck(ctx context.Context, viewer *models.Profile) (deck.BuildResult, error)
}

// CycleReport summarizes one scheduler cycle.
type CycleReport struct {
	Users      int
	Dispatched int
	Written    int
	Empty      int
	Failed     int
	Duration   time.Duration
	Err        error
}

// Scheduler runs periodic deck rebuilds and on-demand refreshes.
type Scheduler struct {
	cfg      config.SchedulerConfig
	profiles ProfileSource
	builder  Builder
	policy   *resilience.Policy
	stream   *resilience.Policy
	limiter  *rate.Limiter
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// cycleMu serializes cycles.
	cycleMu sync.Mutex

	queue     chan string
	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// New creates a scheduler. policies may be nil. Single-profile fetches run
// under policies.Profiles and the active-user fetch under
// policies.ProfilesActive.
func New(cfg config.SchedulerConfig, profiles ProfileSource, builder Builder, policies *resilience.Registry) *Scheduler {
	if cfg.MaxConcurrentBuilds <= 0 {
		cfg.MaxConcurrentBuilds = 1
	}
	if cfg.PerUserTimeout <= 0 {
		cfg.PerUserTimeout = 30 * time.Second
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 60 * time.Second
	}
	if cfg.RefreshQueueSize <= 0 {
		cfg.RefreshQueueSize = 1024
	}
	if cfg.RefreshWorkers <= 0 {
		cfg.RefreshWorkers = 1
	}

	s := &Scheduler{
		cfg:      cfg,
		profiles: profiles,
		builder:  builder,
		logger:   logging.WithComponent("scheduler"),
		queue:    make(chan string, cfg.RefreshQueueSize),
		pending:  make(map[string]struct{}),
	}
	if policies != nil {
		s.policy, s.stream = policies.Profiles, policies.ProfilesActive
	}
	if cfg.BuildsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.BuildsPerSecond), 1)
	}
	return s
}

// Start launches the refresh workers and, when enabled, the periodic loop.
// It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for i := 0; i < s.cfg.RefreshWorkers; i++ {
		s.wg.Add(1)
		go s.refreshWorker(runCtx)
	}

	if s.cfg.Enabled {
		s.wg.Add(1)
		go s.loop(runCtx)
	}

	s.logger.Info().
		Bool("periodic", s.cfg.Enabled).
		Dur("interval", s.cfg.Interval).
		Int("max_concurrent_builds", s.cfg.MaxConcurrentBuilds).
		Float64("builds_per_second", s.cfg.BuildsPerSecond).
		Int("refresh_workers", s.cfg.RefreshWorkers).
		Msg("Scheduler started")
	return nil
}

// Stop cancels the loop and workers and waits for them, including any
// cycle in flight.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping scheduler...")
	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.cfg.RunOnStartup {
		s.tick(ctx)
	}

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.cycleMu.TryLock() {
		s.logger.Warn().Msg("previous cycle still running, skipping tick")
		return
	}
	defer s.cycleMu.Unlock()
	s.runCycle(ctx)
}

// RunOnce runs a single cycle and blocks until every dispatched build has
// finished. It waits for a cycle already in flight.
func (s *Scheduler) RunOnce(ctx context.Context) CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) (report CycleReport) {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		metrics.SchedulerCycleDuration.Observe(report.Duration.Seconds())
	}()

	// streamCtx bounds fetching users and dispatching builds. Builds that
	// were dispatched keep running under their own timeout.
	streamCtx, cancel := context.WithTimeout(ctx, s.cfg.StreamTimeout)
	defer cancel()

	users, err := resilience.Execute(streamCtx, s.stream, s.profiles.GetActiveUsers)
	if err != nil {
		report.Err = fmt.Errorf("fetch active users: %w", err)
		s.logger.Warn().Err(err).Msg("Failed to fetch active users, skipping cycle")
		return report
	}
	report.Users = len(users)
	if len(users) == 0 {
		s.logger.Info().Msg("No active users, nothing to build")
		return report
	}

	var (
		written, empty, failed atomic.Int64
		wg                     sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(s.cfg.MaxConcurrentBuilds))

dispatch:
	for i := range users {
		viewer := users[i]
		if viewer.ID == "" {
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(streamCtx); err != nil {
				report.Err = fmt.Errorf("dispatch paced out: %w", err)
				break dispatch
			}
		}
		if err := sem.Acquire(streamCtx, 1); err != nil {
			report.Err = fmt.Errorf("dispatch stopped: %w", err)
			break dispatch
		}

		report.Dispatched++
		metrics.SchedulerViewersDispatched.Inc()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			res, err := s.build(ctx, &viewer)
			switch {
			case err != nil:
				failed.Add(1)
			case res.Outcome == metrics.BuildOutcomeWritten:
				written.Add(1)
			default:
				empty.Add(1)
			}
		}()
	}

	wg.Wait()

	report.Written = int(written.Load())
	report.Empty = int(empty.Load())
	report.Failed = int(failed.Load())

	s.logger.Info().
		Int("users", report.Users).
		Int("dispatched", report.Dispatched).
		Int("written", report.Written).
		Int("empty", report.Empty).
		Int("failed", report.Failed).
		Dur("duration", time.Since(start)).
		Msg("Deck rebuild cycle complete")

	if report.Err != nil {
		s.logger.Warn().Err(report.Err).Int("undispatched", report.Users-report.Dispatched).Msg("cycle ended before every user was dispatched")
	}
	return report
}

// build runs one viewer build under the per-user timeout.
func (s *Scheduler) build(ctx context.Context, viewer *models.Profile) (deck.BuildResult, error) {
	buildCtx, cancel := context.WithTimeout(ctx, s.cfg.PerUserTimeout)
	defer cancel()

	res, err := s.builder.BuildDeck(buildCtx, viewer)
	if err != nil {
		s.logger.Warn().Err(err).Str("viewer_id", viewer.ID).Msg("deck build failed")
	}
	return res, err
}

// Refresh enqueues a rebuild of one viewer's deck without blocking. It
// returns true when the viewer is queued, including when a refresh for it
// was already pending, and false when the queue is full.
func (s *Scheduler) Refresh(viewerID string) bool {
	if viewerID == "" {
		return false
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if _, ok := s.pending[viewerID]; ok {
		return true
	}

	select {
	case s.queue <- viewerID:
		s.pending[viewerID] = struct{}{}
		metrics.SchedulerRefreshQueueDepth.Set(float64(len(s.pending)))
		return true
	default:
		metrics.SchedulerRefreshDropped.Inc()
		s.logger.Warn().Str("viewer_id", viewerID).Msg("refresh queue full, dropping request")
		return false
	}
}

func (s *Scheduler) refreshWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case viewerID := <-s.queue:
			// Clear the pending mark first so a change arriving during the
			// rebuild queues another one.
			s.pendingMu.Lock()
			delete(s.pending, viewerID)
			metrics.SchedulerRefreshQueueDepth.Set(float64(len(s.pending)))
			s.pendingMu.Unlock()

			s.refreshOne(ctx, viewerID)
		}
	}
}

func (s *Scheduler) refreshOne(ctx context.Context, viewerID string) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.PerUserTimeout)
	defer cancel()

	viewer, err := resilience.Execute(fetchCtx, s.policy, func(ctx context.Context) (models.Profile, error) {
		return s.profiles.GetProfile(ctx, viewerID)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("viewer_id", viewerID).Msg("refresh skipped, profile unavailable")
		return
	}
	if viewer.ID == "" {
		viewer.ID = viewerID
	}

	if _, err := s.build(ctx, &viewer); err == nil {
		s.logger.Debug().Str("viewer_id", viewerID).Msg("deck refreshed")
	}
}
