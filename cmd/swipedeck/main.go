// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

// Package main is the entry point for the swipedeck service.
//
// Swipedeck precomputes a ranked deck of candidate profiles for every active
// viewer, stores it in Redis and serves it page by page.
//
// # Application Architecture
//
// Components are initialized in this order:
//
//  1. Configuration: defaults, config file, environment (Koanf v2)
//  2. Resilience policies: one per dependency class (profiles, swipes, redis)
//  3. Deck cache: go-redis client and Store
//  4. Clients: Profiles and Swipes HTTP collaborators
//  5. Pipeline: search, filter, score, write
//  6. Scheduler: periodic rebuilds and the on-demand refresh queue
//  7. Event consumer (optional): Watermill over NATS JetStream
//  8. HTTP server: deck reads, admin operations, health and metrics
//
// Long-lived components run under a suture supervisor tree.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains,
// the scheduler waits for in-flight builds and the consumer closes its
// subscriptions within the supervisor shutdown timeout.
//
// # Example Usage
//
//	export REDIS_ADDR=localhost:6379
//	export PROFILES_BASE_URL=http://profiles:8080
//	export SWIPES_BASE_URL=http://swipes:8080
//	export EVENTS_ENABLED=true
//	export EVENTS_NATS_URL=nats://nats:4222
//	./swipedeck
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/swipedeck/internal/api"
	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/deck"
	"github.com/tomtom215/swipedeck/internal/deckcache"
	"github.com/tomtom215/swipedeck/internal/events"
	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/profiles"
	"github.com/tomtom215/swipedeck/internal/resilience"
	"github.com/tomtom215/swipedeck/internal/scheduler"
	"github.com/tomtom215/swipedeck/internal/supervisor"
	"github.com/tomtom215/swipedeck/internal/supervisor/services"
	"github.com/tomtom215/swipedeck/internal/swipes"
)

const startupPingTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger not configured yet; the default writes JSON to stderr.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("redis_addr", cfg.Redis.Addr).
		Str("profiles_url", cfg.Profiles.BaseURL).
		Str("swipes_url", cfg.Swipes.BaseURL).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("Configuration loaded")

	policies := resilience.NewRegistry(&cfg.Resilience, cfg.Scheduler.StreamTimeout)

	rdb := deckcache.NewRedisClient(&cfg.Redis)
	store := deckcache.NewStore(rdb, deckcache.Options{
		KeyPrefix: cfg.Redis.KeyPrefix,
		DeckTTL:   cfg.Deck.TTL,
		BucketTTL: cfg.Deck.BucketTTL,
	}, policies.Redis)
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Redis client")
		}
	}()

	// Reads degrade to empty decks while Redis is down, so an unreachable
	// Redis at startup is not fatal.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), startupPingTimeout)
	if err := store.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis not reachable at startup, continuing in degraded mode")
	} else {
		logging.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")
	}
	pingCancel()

	profileClient := profiles.NewClient(&cfg.Profiles)
	swipeClient := swipes.NewClient(&cfg.Swipes)

	pipeline := deck.New(&cfg.Deck, profileClient, swipeClient, store, policies, nil)
	sched := scheduler.New(cfg.Scheduler, profileClient, pipeline, policies)
	reader := deck.NewReader(store, sched, cfg.Deck.DefaultPageSize, cfg.Deck.MaxPageSize)

	handler := api.NewHandler(api.Dependencies{
		Reader:    reader,
		Admin:     store,
		Redis:     store,
		Refresher: sched,
		Breakers:  policies,
		Scheduler: sched,
	})
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           api.NewRouter(handler, &cfg.Server),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfigFrom(&cfg.Supervisor))
	tree.AddWorker(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if cfg.Events.Enabled {
		eventsCfg := cfg.Events
		consumer := events.NewConsumer(&eventsCfg, store, func() (message.Subscriber, error) {
			return events.NewNATSSubscriber(&eventsCfg, logging.NewWatermillLogger("events-nats"))
		})
		tree.AddEventService(consumer)
		logging.Info().Str("nats_url", cfg.Events.NATSURL).Msg("Event consumer added to supervisor tree")
	} else {
		logging.Info().Msg("Event consumer disabled (EVENTS_ENABLED=false)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// errCh receives exactly one value and is never closed.
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Swipedeck stopped")
}
