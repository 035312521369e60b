// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deckcache

import "github.com/tomtom215/swipedeck/internal/models"

// Key layout, relative to the configured prefix:
//
//	{prefix}:deck:{viewer}            ZSET   member=candidateID score=score
//	{prefix}:deck:{viewer}:built_at   STRING unix millis
//	{prefix}:deck:{viewer}:stale      SET    candidate IDs
//	{prefix}:decks:active             SET    viewer IDs
//	{prefix}:bucket:{min}:{max}:{G}   SET    candidate IDs
//	{prefix}:profile:{id}             STRING JSON snapshot
const (
	segmentDeck    = "deck"
	segmentDecks   = "decks"
	segmentBucket  = "bucket"
	segmentProfile = "profile"

	suffixBuiltAt = "built_at"
	suffixStale   = "stale"
	suffixActive  = "active"
)

// DefaultKeyPrefix is used when no prefix is configured.
const DefaultKeyPrefix = "swipedeck"

type keyspace struct {
	prefix string
}

func newKeyspace(prefix string) keyspace {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return keyspace{prefix: prefix}
}

func (k keyspace) deck(viewerID string) string {
	return k.prefix + ":" + segmentDeck + ":" + viewerID
}

func (k keyspace) builtAt(viewerID string) string {
	return k.deck(viewerID) + ":" + suffixBuiltAt
}

func (k keyspace) stale(viewerID string) string {
	return k.deck(viewerID) + ":" + suffixStale
}

func (k keyspace) active() string {
	return k.prefix + ":" + segmentDecks + ":" + suffixActive
}

func (k keyspace) bucket(b models.PreferenceBucket) string {
	return k.prefix + ":" + segmentBucket + ":" + b.String()
}

func (k keyspace) profile(id string) string {
	return k.prefix + ":" + segmentProfile + ":" + id
}
