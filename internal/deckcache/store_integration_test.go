// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

//go:build integration

package deckcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/models"
	"github.com/tomtom215/swipedeck/internal/resilience"
	"github.com/tomtom215/swipedeck/internal/testinfra"
)

func newContainerStore(t *testing.T, deckTTL time.Duration) *Store {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	rc, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("NewRedisContainer: %v", err)
	}
	t.Cleanup(func() { testinfra.CleanupContainer(t, context.Background(), rc) })

	rdb := NewRedisClient(&config.RedisConfig{
		Addr:         rc.Addr,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	policy := resilience.NewPolicy("redis", config.Defaults().Resilience.Redis, resilience.RedisClassifier{})
	return NewStore(rdb, Options{KeyPrefix: "it", DeckTTL: deckTTL, BucketTTL: time.Minute}, policy)
}

func TestIntegration_DeckLifecycle(t *testing.T) {
	store := newContainerStore(t, 2*time.Second)
	ctx := context.Background()

	entries := []models.DeckEntry{
		{CandidateID: "a", Score: 0.5},
		{CandidateID: "b", Score: 0.9},
		{CandidateID: "c", Score: 0.7},
	}
	if err := store.WriteDeck(ctx, "viewer", entries, 2*time.Second); err != nil {
		t.Fatalf("WriteDeck: %v", err)
	}

	got := store.ReadDeck(ctx, "viewer", 0, 10)
	want := []string{"b", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("ReadDeck returned %d entries, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].CandidateID != id {
			t.Errorf("entry %d = %s, want %s", i, got[i].CandidateID, id)
		}
	}
	if _, ok := store.BuildInstant(ctx, "viewer"); !ok {
		t.Error("BuildInstant missing after write")
	}

	// Real server expiry.
	time.Sleep(3 * time.Second)
	if n := store.Size(ctx, "viewer"); n != 0 {
		t.Errorf("Size after TTL = %d, want 0", n)
	}
}

func TestIntegration_StaleFanoutAcrossChunks(t *testing.T) {
	store := newContainerStore(t, time.Hour)
	ctx := context.Background()

	// More viewers than one fan-out pipeline chunk.
	viewers := staleFanoutChunk + 25
	for i := 0; i < viewers; i++ {
		id := fmt.Sprintf("v%04d", i)
		if err := store.WriteDeck(ctx, id, []models.DeckEntry{{CandidateID: "target", Score: 1}}, time.Hour); err != nil {
			t.Fatalf("WriteDeck(%s): %v", id, err)
		}
	}

	touched, err := store.MarkAsStaleForAllDecks(ctx, "target")
	if err != nil {
		t.Fatalf("MarkAsStaleForAllDecks: %v", err)
	}
	if touched != viewers {
		t.Errorf("touched = %d, want %d", touched, viewers)
	}
	if !store.IsStale(ctx, fmt.Sprintf("v%04d", viewers-1), "target") {
		t.Error("last viewer not marked stale")
	}
}

func TestIntegration_DegradedReadsAfterClose(t *testing.T) {
	store := newContainerStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	_ = store.rdb.(*redis.Client).Close()

	if got := store.ReadDeck(ctx, "viewer", 0, 10); len(got) != 0 {
		t.Errorf("ReadDeck on closed client = %v, want empty", got)
	}
	if store.HasPreferencesCache(ctx, models.PreferenceBucket{MinAge: 18, MaxAge: 30, Gender: models.GenderFemale}) {
		t.Error("HasPreferencesCache on closed client = true")
	}
}
