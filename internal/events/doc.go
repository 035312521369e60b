// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

/*
Package events consumes upstream change events and applies them to the deck
cache, bypassing the build pipeline.

	swipes.created     -> RemoveFromDeck(swiper, swiped)
	profiles.updated   -> PREFERENCES, CRITICAL_FIELDS: Invalidate(profile)
	                      anything else: MarkAsStaleForAllDecks(profile)
	profiles.deleted   -> Invalidate(profile), then MarkAsStaleForAllDecks
	                      when MarkStaleOnDelete is set

Preference buckets are never invalidated here; they expire on their TTL.

Messages are delivered by a Watermill router with panic recovery and
exponential-backoff retry. Payloads that cannot be decoded or fail
validation are logged and acknowledged; cache failures are returned so the
router retries them and the broker redelivers after the last retry.

Production uses a NATS JetStream subscriber (NewNATSSubscriber); tests use
Watermill's gochannel pub/sub.
*/
package events
