// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/swipedeck/internal/models"
)

func TestSearchStage_DefaultsPreferences(t *testing.T) {
	searcher := &mockProfiles{}
	stage := NewSearchStage(searcher, nil, nil, 50)

	stage.Search(context.Background(), &models.Profile{ID: "v1"})

	if len(searcher.prefs) != 1 {
		t.Fatalf("search calls = %d, want 1", len(searcher.prefs))
	}
	if got := searcher.prefs[0]; got != models.DefaultPreferences() {
		t.Errorf("prefs = %+v, want defaults", got)
	}
}

func TestSearchStage_ExcludesViewerAndEmptyIDs(t *testing.T) {
	searcher := &mockProfiles{results: []models.Profile{
		profile("c1", 22, models.GenderFemale),
		profile("v1", 24, models.GenderFemale),
		profile("", 23, models.GenderFemale),
		profile("c2", 21, models.GenderFemale),
	}}
	stage := NewSearchStage(searcher, nil, nil, 50)

	got := stage.Search(context.Background(), &models.Profile{ID: "v1"})

	if want := []string{"c1", "c2"}; !equalStrings(ids(got), want) {
		t.Errorf("pool = %v, want %v", ids(got), want)
	}
}

func TestSearchStage_FailOpen(t *testing.T) {
	searcher := &mockProfiles{err: errors.New("connection refused")}
	stage := NewSearchStage(searcher, nil, nil, 50)

	got := stage.Search(context.Background(), &models.Profile{ID: "v1"})
	if len(got) != 0 {
		t.Errorf("pool = %v, want empty", ids(got))
	}
}

func TestSearchStage_PopulatesAndServesBucket(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	searcher := &mockProfiles{results: []models.Profile{
		profile("c2", 22, models.GenderFemale),
		profile("c1", 24, models.GenderFemale),
	}}
	stage := NewSearchStage(searcher, store, nil, 50)

	prefs := &models.Preferences{MinAge: 18, MaxAge: 25, Gender: models.GenderFemale}
	viewer := &models.Profile{ID: "v1", Preferences: prefs}

	first := stage.Search(ctx, viewer)
	if len(first) != 2 {
		t.Fatalf("first pool = %v, want 2 candidates", ids(first))
	}

	bucket, err := models.NewPreferenceBucket(18, 25, "FEMALE")
	if err != nil {
		t.Fatalf("NewPreferenceBucket: %v", err)
	}
	if !store.HasPreferencesCache(ctx, bucket) {
		t.Fatal("bucket was not populated")
	}

	// A second viewer with the same preferences is served from the cache.
	other := &models.Profile{ID: "v2", Preferences: prefs}
	second := stage.Search(ctx, other)

	if searcher.callCount() != 1 {
		t.Errorf("remote searches = %d, want 1", searcher.callCount())
	}
	if want := []string{"c1", "c2"}; !equalStrings(ids(second), want) {
		t.Errorf("cached pool = %v, want %v", ids(second), want)
	}
	if second[0].Age != 24 {
		t.Errorf("snapshot age = %d, want 24", second[0].Age)
	}
}

func TestSearchStage_BucketExcludesViewer(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	bucket, _ := models.NewPreferenceBucket(18, 25, "FEMALE")
	members := []models.Profile{profile("c1", 22, models.GenderFemale), profile("v1", 23, models.GenderFemale)}
	if err := store.CacheProfiles(ctx, members); err != nil {
		t.Fatalf("CacheProfiles: %v", err)
	}
	if _, err := store.CachePreferencesResult(ctx, bucket, []string{"c1", "v1"}); err != nil {
		t.Fatalf("CachePreferencesResult: %v", err)
	}

	searcher := &mockProfiles{}
	stage := NewSearchStage(searcher, store, nil, 50)
	viewer := &models.Profile{ID: "v1", Preferences: &models.Preferences{MinAge: 18, MaxAge: 25, Gender: models.GenderFemale}}

	got := stage.Search(ctx, viewer)
	if want := []string{"c1"}; !equalStrings(ids(got), want) {
		t.Errorf("pool = %v, want %v", ids(got), want)
	}
	if searcher.callCount() != 0 {
		t.Errorf("remote searches = %d, want 0", searcher.callCount())
	}
}

func TestSearchStage_IncompleteSnapshotsIsMiss(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	bucket, _ := models.NewPreferenceBucket(18, 25, "FEMALE")
	if err := store.CacheProfiles(ctx, []models.Profile{profile("c1", 22, models.GenderFemale), profile("c2", 23, models.GenderFemale)}); err != nil {
		t.Fatalf("CacheProfiles: %v", err)
	}
	if _, err := store.CachePreferencesResult(ctx, bucket, []string{"c1", "c2"}); err != nil {
		t.Fatalf("CachePreferencesResult: %v", err)
	}
	mr.Del("test:profile:c2")

	searcher := &mockProfiles{results: []models.Profile{profile("c3", 20, models.GenderFemale)}}
	stage := NewSearchStage(searcher, store, nil, 50)
	viewer := &models.Profile{ID: "v1", Preferences: &models.Preferences{MinAge: 18, MaxAge: 25, Gender: models.GenderFemale}}

	got := stage.Search(ctx, viewer)
	if searcher.callCount() != 1 {
		t.Errorf("remote searches = %d, want 1", searcher.callCount())
	}
	if want := []string{"c3"}; !equalStrings(ids(got), want) {
		t.Errorf("pool = %v, want %v", ids(got), want)
	}
}
