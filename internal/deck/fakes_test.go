// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/swipedeck/internal/deckcache"
	"github.com/tomtom215/swipedeck/internal/models"
)

// mockProfiles is a ProfileSearcher returning a fixed result.
type mockProfiles struct {
	mu      sync.Mutex
	results []models.Profile
	err     error
	calls   int
	prefs   []models.Preferences
}

func (m *mockProfiles) SearchProfiles(_ context.Context, _ string, prefs models.Preferences, limit int) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prefs = append(m.prefs, prefs)
	if m.err != nil {
		return nil, m.err
	}
	out := m.results
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]models.Profile(nil), out...), nil
}

func (m *mockProfiles) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSwipes is a SwipeLookup backed by a decided set. failBatches lists
// batch indexes (0-based, in call order) that return err.
type mockSwipes struct {
	mu          sync.Mutex
	decided     map[string]bool
	failBatches map[int]bool
	err         error
	batches     [][]string
}

func (m *mockSwipes) BetweenBatch(_ context.Context, _ string, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.batches)
	m.batches = append(m.batches, append([]string(nil), ids...))
	if m.failBatches[idx] {
		return nil, m.err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = m.decided[id]
	}
	return out, nil
}

func (m *mockSwipes) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.batches))
	for i, b := range m.batches {
		sizes[i] = len(b)
	}
	return sizes
}

// mockWriter records deck writes.
type mockWriter struct {
	mu     sync.Mutex
	err    error
	writes map[string][]models.DeckEntry
}

func (m *mockWriter) WriteDeck(_ context.Context, viewerID string, entries []models.DeckEntry, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.writes == nil {
		m.writes = make(map[string][]models.DeckEntry)
	}
	m.writes[viewerID] = append([]models.DeckEntry(nil), entries...)
	return nil
}

// mockRefresher records refresh requests.
type mockRefresher struct {
	mu       sync.Mutex
	accept   bool
	requests []string
}

func (m *mockRefresher) Refresh(viewerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, viewerID)
	return m.accept
}

func newTestStore(t *testing.T) (*deckcache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := deckcache.NewStore(rdb, deckcache.Options{
		KeyPrefix: "test",
		DeckTTL:   time.Hour,
		BucketTTL: 5 * time.Minute,
	}, nil)
	return store, mr
}

// scoreByID returns a scorer that looks scores up by candidate ID.
func scoreByID(scores map[string]float64) Scorer {
	return ScorerFunc(func(_, c models.Profile) float64 {
		return scores[c.ID]
	})
}

func profile(id string, age int, gender models.Gender) models.Profile {
	return models.Profile{ID: id, Age: age, Gender: gender, Active: true}
}

func ids(ps []models.Profile) []string {
	out := make([]string, len(ps))
	for i := range ps {
		out[i] = ps[i].ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
