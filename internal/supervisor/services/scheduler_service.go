// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package services

import (
	"context"
	"fmt"
)

// StartStopManager is the lifecycle of *scheduler.Scheduler.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService runs a Start/Stop manager under suture: Start, wait for
// cancellation, then Stop. Stop waits for in-flight builds.
type SchedulerService struct {
	manager StartStopManager
	name    string
}

// NewSchedulerService wraps the deck scheduler.
func NewSchedulerService(manager StartStopManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "deck-scheduler",
	}
}

// Serve implements suture.Service. A Start error is returned so suture
// restarts the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return s.name
}
