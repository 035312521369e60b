// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*SchedulerService)(nil)
	_ suture.Service = (*HTTPServerService)(nil)
)

type mockManager struct {
	startErr   error
	stopErr    error
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (m *mockManager) Start(context.Context) error {
	m.startCount.Add(1)
	return m.startErr
}

func (m *mockManager) Stop() error {
	m.stopCount.Add(1)
	return m.stopErr
}

func TestSchedulerServiceServe(t *testing.T) {
	t.Run("starts and stops with the context", func(t *testing.T) {
		m := &mockManager{}
		svc := NewSchedulerService(m)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		if m.startCount.Load() != 1 {
			t.Fatalf("Start called %d times, want 1", m.startCount.Load())
		}
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}
		if m.stopCount.Load() != 1 {
			t.Errorf("Stop called %d times, want 1", m.stopCount.Load())
		}
	})

	t.Run("start error is returned", func(t *testing.T) {
		m := &mockManager{startErr: errors.New("already running")}
		err := NewSchedulerService(m).Serve(context.Background())
		if err == nil || !errors.Is(err, m.startErr) {
			t.Errorf("Serve = %v, want wrapped start error", err)
		}
		if m.stopCount.Load() != 0 {
			t.Error("Stop called after failed Start")
		}
	})

	t.Run("stop error is returned", func(t *testing.T) {
		m := &mockManager{stopErr: errors.New("not running")}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewSchedulerService(m).Serve(ctx); !errors.Is(err, m.stopErr) {
			t.Errorf("Serve = %v, want wrapped stop error", err)
		}
	})

	if got := NewSchedulerService(&mockManager{}).String(); got != "deck-scheduler" {
		t.Errorf("String = %q", got)
	}
}

type mockHTTPServer struct {
	listenErr     error
	shutdownErr   error
	shutdownCount atomic.Int32
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestNewHTTPServerServiceDefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if svc := NewHTTPServerService(newMockHTTPServer(), d); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout for %v = %v, want 10s", d, svc.shutdownTimeout)
		}
	}
}

func TestHTTPServerServiceServe(t *testing.T) {
	t.Run("graceful shutdown on cancel", func(t *testing.T) {
		server := newMockHTTPServer()
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if server.shutdownCount.Load() != 1 {
			t.Errorf("Shutdown called %d times, want 1", server.shutdownCount.Load())
		}
	})

	t.Run("listen error is returned", func(t *testing.T) {
		server := newMockHTTPServer()
		server.listenErr = errors.New("address already in use")
		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, server.listenErr) {
			t.Errorf("Serve = %v, want wrapped listen error", err)
		}
	})

	t.Run("shutdown error is returned", func(t *testing.T) {
		server := newMockHTTPServer()
		server.shutdownErr = errors.New("connections still open")
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- NewHTTPServerService(server, time.Second).Serve(ctx) }()
		time.Sleep(20 * time.Millisecond)
		cancel()
		if err := <-done; !errors.Is(err, server.shutdownErr) {
			t.Errorf("Serve = %v, want wrapped shutdown error", err)
		}
	})
}
