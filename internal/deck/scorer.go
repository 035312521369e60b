// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"math"
	"strings"

	"github.com/tomtom215/swipedeck/internal/models"
)

const earthRadiusKM = 6371.0

// CompatibilityScorer is the default Scorer. It blends three signals, each
// in [0, 1]:
//
//   - age: 1 at the middle of the viewer's preferred range, falling off
//     linearly to 0 one half-range outside it
//   - interests: Jaccard similarity of the two interest sets
//   - distance: 1 at zero distance, 0 at the viewer's max distance
//
// A candidate whose own preferences reject the viewer has its score halved.
type CompatibilityScorer struct {
	AgeWeight      float64
	InterestWeight float64
	DistanceWeight float64
}

// NewCompatibilityScorer returns the scorer with its default weights.
func NewCompatibilityScorer() CompatibilityScorer {
	return CompatibilityScorer{AgeWeight: 0.4, InterestWeight: 0.3, DistanceWeight: 0.3}
}

// Score implements Scorer.
//
//nolint:gocritic // profiles are passed by value so scorers cannot mutate them
func (c CompatibilityScorer) Score(viewer, candidate models.Profile) float64 {
	prefs := viewer.EffectivePreferences()

	total := c.AgeWeight + c.InterestWeight + c.DistanceWeight
	if total <= 0 {
		return 0
	}

	score := c.AgeWeight*ageScore(prefs, candidate.Age) +
		c.InterestWeight*interestScore(viewer.Interests, candidate.Interests) +
		c.DistanceWeight*distanceScore(prefs.MaxDistanceKM, &viewer, &candidate)
	score /= total

	if !acceptsViewer(&candidate, &viewer) {
		score *= 0.5
	}
	return score
}

func ageScore(prefs models.Preferences, age int) float64 {
	half := float64(prefs.MaxAge-prefs.MinAge) / 2
	mid := float64(prefs.MinAge) + half
	span := half * 2
	if span < 1 {
		span = 1
	}
	return clamp01(1 - math.Abs(float64(age)-mid)/span)
}

func interestScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(v)] = struct{}{}
	}
	union := len(set)
	shared := 0
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

// distanceScore returns 0.5 when either location is unknown (0,0).
func distanceScore(maxKM float64, a, b *models.Profile) float64 {
	if (a.Latitude == 0 && a.Longitude == 0) || (b.Latitude == 0 && b.Longitude == 0) {
		return 0.5
	}
	if maxKM <= 0 {
		return 0
	}
	return clamp01(1 - haversineKM(a.Latitude, a.Longitude, b.Latitude, b.Longitude)/maxKM)
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(math.Min(1, h)))
}

func acceptsViewer(candidate, viewer *models.Profile) bool {
	if candidate.Preferences == nil {
		return true
	}
	p := candidate.EffectivePreferences()
	if viewer.Age != 0 && (viewer.Age < p.MinAge || viewer.Age > p.MaxAge) {
		return false
	}
	return p.Gender.Matches(viewer.Gender)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
