// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package models

import (
	"strings"
	"time"
)

// Gender is the normalized, uppercase gender value used by profiles and
// preference buckets.
type Gender string

const (
	GenderMale      Gender = "MALE"
	GenderFemale    Gender = "FEMALE"
	GenderNonBinary Gender = "NONBINARY"

	// GenderAny matches every candidate gender. It is only meaningful in
	// preferences.
	GenderAny Gender = "ANY"
)

// ParseGender normalizes free-form input into a Gender. Empty input maps to
// GenderAny.
func ParseGender(s string) Gender {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return GenderAny
	}
	return Gender(s)
}

// Matches reports whether a candidate of gender g satisfies preference p.
func (p Gender) Matches(g Gender) bool {
	return p == GenderAny || p == "" || p == g
}

// Default preference values applied when a viewer has none.
const (
	DefaultMinAge        = 18
	DefaultMaxAge        = 99
	DefaultMaxDistanceKM = 50
)

// Preferences is a viewer's candidate filter.
type Preferences struct {
	MinAge        int     `json:"min_age" validate:"gte=18,lte=120"`
	MaxAge        int     `json:"max_age" validate:"gte=18,lte=120,gtefield=MinAge"`
	Gender        Gender  `json:"gender" validate:"omitempty,gender"`
	MaxDistanceKM float64 `json:"max_distance_km" validate:"gte=0"`
}

// DefaultPreferences returns the permissive preferences used for viewers that
// never configured any: 18-99, any gender, 50 km.
func DefaultPreferences() Preferences {
	return Preferences{
		MinAge:        DefaultMinAge,
		MaxAge:        DefaultMaxAge,
		Gender:        GenderAny,
		MaxDistanceKM: DefaultMaxDistanceKM,
	}
}

// Profile is an immutable snapshot of a user profile as returned by the
// Profiles service. Only the fields the deck pipeline needs are modeled.
type Profile struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name,omitempty"`
	Age         int          `json:"age"`
	Gender      Gender       `json:"gender"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Interests   []string     `json:"interests,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
	Active      bool         `json:"active"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// EffectivePreferences returns the profile's preferences, or the defaults
// when none are set. Zero-valued fields inside a partial preference set are
// filled from the defaults as well.
func (p *Profile) EffectivePreferences() Preferences {
	def := DefaultPreferences()
	if p.Preferences == nil {
		return def
	}
	prefs := *p.Preferences
	if prefs.MinAge == 0 {
		prefs.MinAge = def.MinAge
	}
	if prefs.MaxAge == 0 {
		prefs.MaxAge = def.MaxAge
	}
	if prefs.Gender == "" {
		prefs.Gender = def.Gender
	}
	if prefs.MaxDistanceKM == 0 {
		prefs.MaxDistanceKM = def.MaxDistanceKM
	}
	prefs.Gender = ParseGender(string(prefs.Gender))
	return prefs
}
