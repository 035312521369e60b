// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"
	"time"

	"github.com/tomtom215/swipedeck/internal/models"
)

// ProfileSearcher is the part of the Profiles client used by SearchStage.
type ProfileSearcher interface {
	SearchProfiles(ctx context.Context, viewerID string, prefs models.Preferences, limit int) ([]models.Profile, error)
}

// SwipeLookup is the part of the Swipes client used by FilterStage.
type SwipeLookup interface {
	BetweenBatch(ctx context.Context, viewerID string, candidateIDs []string) (map[string]bool, error)
}

// BucketCache is the preference-bucket side of the deck cache.
type BucketCache interface {
	HasPreferencesCache(ctx context.Context, bucket models.PreferenceBucket) bool
	CandidatesByPreferences(ctx context.Context, bucket models.PreferenceBucket) []string
	CachePreferencesResult(ctx context.Context, bucket models.PreferenceBucket, candidateIDs []string) (int64, error)
	Profiles(ctx context.Context, ids []string) map[string]models.Profile
	CacheProfiles(ctx context.Context, profiles []models.Profile) error
}

// DeckWriter persists a built deck.
type DeckWriter interface {
	WriteDeck(ctx context.Context, viewerID string, entries []models.DeckEntry, ttl time.Duration) error
}

// DeckStore is the read side of the deck cache used by Reader.
type DeckStore interface {
	ReadDeck(ctx context.Context, viewerID string, offset, limit int64) []models.DeckEntry
	Size(ctx context.Context, viewerID string) int64
	BuildInstant(ctx context.Context, viewerID string) (time.Time, bool)
	StaleInDeck(ctx context.Context, viewerID string) []string
}

// Refresher schedules a background rebuild of one viewer's deck. Refresh
// must not block; it reports whether the request was accepted or already
// pending.
type Refresher interface {
	Refresh(viewerID string) bool
}
