// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package models

import (
	"fmt"
	"time"

	"github.com/tomtom215/swipedeck/internal/validation"
)

// DeckEntry is one ranked candidate inside a viewer's deck.
type DeckEntry struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
}

// ScoredCandidate pairs a candidate snapshot with its computed score.
type ScoredCandidate struct {
	Profile Profile
	Score   float64
}

// Entry projects the scored candidate to the form stored in the cache.
func (s ScoredCandidate) Entry() DeckEntry {
	return DeckEntry{CandidateID: s.Profile.ID, Score: s.Score}
}

// PreferenceBucket is the normalized key of a shared candidate pool.
// Construct it with NewPreferenceBucket so that it is validated once;
// the cache layer never parses or re-normalizes it.
type PreferenceBucket struct {
	MinAge int    `validate:"gte=18,lte=120"`
	MaxAge int    `validate:"gte=18,lte=120,gtefield=MinAge"`
	Gender Gender `validate:"required,gender"`
}

// String renders the bucket as "min:max:GENDER".
func (b PreferenceBucket) String() string {
	return fmt.Sprintf("%d:%d:%s", b.MinAge, b.MaxAge, b.Gender)
}

// NewPreferenceBucket normalizes and validates a bucket tuple.
func NewPreferenceBucket(minAge, maxAge int, gender string) (PreferenceBucket, error) {
	b := PreferenceBucket{MinAge: minAge, MaxAge: maxAge, Gender: ParseGender(gender)}
	if verr := validation.ValidateStruct(&b); verr != nil {
		return PreferenceBucket{}, fmt.Errorf("invalid preference bucket %s: %w", b, verr)
	}
	return b, nil
}

// DeckPage is the read-side view of a cached deck.
type DeckPage struct {
	ViewerID string         `json:"viewer_id"`
	Entries  []DeckPageItem `json:"entries"`
	Offset   int64          `json:"offset"`
	Limit    int64          `json:"limit"`
	Total    int64          `json:"total"`
	BuiltAt  *time.Time     `json:"built_at,omitempty"`

	// Refreshing is set when the read triggered a background rebuild,
	// either because the deck was missing or because it held stale entries.
	Refreshing bool `json:"refreshing"`
}

// DeckPageItem is a deck entry annotated with its stale marker.
type DeckPageItem struct {
	DeckEntry
	Stale bool `json:"stale,omitempty"`
}
