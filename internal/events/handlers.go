// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/metrics"
)

// Result labels for metrics.EventsProcessed.
const (
	resultOK        = "ok"
	resultMalformed = "malformed"
	resultError     = "error"
)

// DeckCache is the invalidation surface of the deck cache.
type DeckCache interface {
	RemoveFromDeck(ctx context.Context, viewerID, candidateID string) (bool, error)
	Invalidate(ctx context.Context, viewerID string) (int64, error)
	MarkAsStaleForAllDecks(ctx context.Context, candidateID string) (int, error)
}

// Handlers translates change events into cache operations.
type Handlers struct {
	cache             DeckCache
	markStaleOnDelete bool
	logger            zerolog.Logger
}

// NewHandlers creates the event handlers.
func NewHandlers(cache DeckCache, markStaleOnDelete bool) *Handlers {
	return &Handlers{
		cache:             cache,
		markStaleOnDelete: markStaleOnDelete,
		logger:            logging.WithComponent("events"),
	}
}

// finish records the outcome of one message. Malformed payloads are
// swallowed so the message is acknowledged.
func (h *Handlers) finish(topic string, msg *message.Message, err error) error {
	switch {
	case err == nil:
		metrics.RecordEvent(topic, resultOK)
		return nil
	case errors.Is(err, ErrMalformedPayload):
		metrics.RecordEvent(topic, resultMalformed)
		h.logger.Warn().Err(err).
			Str("topic", topic).
			Str("message_uuid", msg.UUID).
			Msg("dropping malformed event")
		return nil
	default:
		metrics.RecordEvent(topic, resultError)
		h.logger.Warn().Err(err).
			Str("topic", topic).
			Str("message_uuid", msg.UUID).
			Msg("event handling failed")
		return err
	}
}

// SwipeCreated removes the swiped candidate from the swiper's deck.
func (h *Handlers) SwipeCreated(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var ev SwipeCreated
		err := decode(msg.Payload, &ev)
		if err == nil {
			_, err = h.cache.RemoveFromDeck(msg.Context(), ev.SwiperID, ev.SwipedID)
			if err != nil {
				err = fmt.Errorf("remove %s from %s: %w", ev.SwipedID, ev.SwiperID, err)
			}
		}
		return h.finish(topic, msg, err)
	}
}

// ProfileUpdated invalidates the owner's deck on PREFERENCES and
// CRITICAL_FIELDS changes and marks the profile stale in every deck
// otherwise.
func (h *Handlers) ProfileUpdated(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var ev ProfileUpdated
		err := decode(msg.Payload, &ev)
		if err == nil {
			err = h.applyProfileUpdate(msg.Context(), &ev)
		}
		return h.finish(topic, msg, err)
	}
}

func (h *Handlers) applyProfileUpdate(ctx context.Context, ev *ProfileUpdated) error {
	switch ct := ev.NormalizedChangeType(); ct {
	case ChangePreferences, ChangeCriticalFields:
		if _, err := h.cache.Invalidate(ctx, ev.ProfileID); err != nil {
			return fmt.Errorf("invalidate deck %s: %w", ev.ProfileID, err)
		}
		h.logger.Debug().Str("profile_id", ev.ProfileID).Str("change_type", string(ct)).Msg("deck invalidated")
	default:
		n, err := h.cache.MarkAsStaleForAllDecks(ctx, ev.ProfileID)
		if err != nil {
			return fmt.Errorf("mark %s stale: %w", ev.ProfileID, err)
		}
		h.logger.Debug().Str("profile_id", ev.ProfileID).Int("decks", n).Msg("profile marked stale")
	}
	return nil
}

// ProfileDeleted invalidates the deleted profile's deck and, when
// configured, marks it stale in every other deck.
func (h *Handlers) ProfileDeleted(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var ev ProfileDeleted
		err := decode(msg.Payload, &ev)
		if err == nil {
			err = h.applyProfileDelete(msg.Context(), ev.ProfileID)
		}
		return h.finish(topic, msg, err)
	}
}

func (h *Handlers) applyProfileDelete(ctx context.Context, profileID string) error {
	if _, err := h.cache.Invalidate(ctx, profileID); err != nil {
		return fmt.Errorf("invalidate deck %s: %w", profileID, err)
	}
	if !h.markStaleOnDelete {
		return nil
	}
	if _, err := h.cache.MarkAsStaleForAllDecks(ctx, profileID); err != nil {
		return fmt.Errorf("mark %s stale: %w", profileID, err)
	}
	return nil
}
