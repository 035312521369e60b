// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/logging"
)

// SubscriberFactory opens a fresh subscriber for each Serve call.
type SubscriberFactory func() (message.Subscriber, error)

// Consumer is a supervisable service that routes change events to the
// deck cache until its context ends.
type Consumer struct {
	cfg        config.EventsConfig
	handlers   *Handlers
	subscriber SubscriberFactory
	logger     watermill.LoggerAdapter

	ready     chan struct{}
	readyOnce sync.Once
}

// NewConsumer creates a consumer.
func NewConsumer(cfg *config.EventsConfig, cache DeckCache, subscriber SubscriberFactory) *Consumer {
	return &Consumer{
		cfg:        *cfg,
		handlers:   NewHandlers(cache, cfg.MarkStaleOnDelete),
		subscriber: subscriber,
		logger:     logging.NewWatermillLogger("events"),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the consumer is subscribed to every topic.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) routerConfig() RouterConfig {
	rc := DefaultRouterConfig()
	rc.RetryMaxRetries = c.cfg.RetryCount
	if c.cfg.RetryInitialInterval > 0 {
		rc.RetryInitialInterval = c.cfg.RetryInitialInterval
	}
	if c.cfg.CloseTimeout > 0 {
		rc.CloseTimeout = c.cfg.CloseTimeout
	}
	return rc
}

// Serve implements suture.Service. A new router and subscriber are built on
// every call so the supervisor can restart the consumer after a failure.
func (c *Consumer) Serve(ctx context.Context) error {
	sub, err := c.subscriber()
	if err != nil {
		return fmt.Errorf("open subscriber: %w", err)
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil {
			c.logger.Error("Failed to close subscriber", cerr, nil)
		}
	}()

	rc := c.routerConfig()
	router, err := NewRouter(&rc, c.logger)
	if err != nil {
		return err
	}

	router.AddConsumerHandler("swipe-created", c.cfg.SwipeCreatedTopic, sub, c.handlers.SwipeCreated(c.cfg.SwipeCreatedTopic))
	router.AddConsumerHandler("profile-updated", c.cfg.ProfileUpdatedTopic, sub, c.handlers.ProfileUpdated(c.cfg.ProfileUpdatedTopic))
	router.AddConsumerHandler("profile-deleted", c.cfg.ProfileDeletedTopic, sub, c.handlers.ProfileDeleted(c.cfg.ProfileDeletedTopic))

	go func() {
		select {
		case <-router.Running():
			c.markReady()
		case <-ctx.Done():
		}
	}()

	c.logger.Info("Event consumer starting", watermill.LogFields{
		"swipe_topic":   c.cfg.SwipeCreatedTopic,
		"update_topic":  c.cfg.ProfileUpdatedTopic,
		"deleted_topic": c.cfg.ProfileDeletedTopic,
	})

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

func (c *Consumer) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// String returns the service name for logging.
func (c *Consumer) String() string {
	return "event-consumer"
}
