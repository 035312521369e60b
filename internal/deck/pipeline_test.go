// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/metrics"
	"github.com/tomtom215/swipedeck/internal/models"
)

func testDeckConfig() *config.DeckConfig {
	return &config.DeckConfig{
		PerUserLimit:       100,
		TTL:                time.Hour,
		SearchLimit:        500,
		FilterBatchSize:    200,
		ScoringParallelism: 4,
		BucketCacheEnabled: false,
	}
}

func youngWomenViewer() *models.Profile {
	return &models.Profile{
		ID:          "viewer",
		Age:         24,
		Gender:      models.GenderMale,
		Preferences: &models.Preferences{MinAge: 18, MaxAge: 25, Gender: models.GenderFemale},
	}
}

func TestBuildDeck_EndToEnd(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	searcher := &mockProfiles{results: []models.Profile{
		profile("low", 22, models.GenderFemale),
		profile("decided", 23, models.GenderFemale),
		profile("high", 21, models.GenderFemale),
	}}
	swipes := &mockSwipes{decided: map[string]bool{"decided": true}}
	scorer := scoreByID(map[string]float64{"high": 0.9, "decided": 0.8, "low": 0.6})

	pipeline := New(testDeckConfig(), searcher, swipes, store, nil, scorer)

	res, err := pipeline.BuildDeck(ctx, youngWomenViewer())
	if err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	if res.Outcome != metrics.BuildOutcomeWritten || res.Written != 2 {
		t.Errorf("result = %+v, want written with 2 entries", res)
	}
	if res.Searched != 3 || res.Filtered != 2 || res.Scored != 2 {
		t.Errorf("stage counts = %d/%d/%d, want 3/2/2", res.Searched, res.Filtered, res.Scored)
	}

	if got := searcher.prefs[0]; got.MinAge != 18 || got.MaxAge != 25 || got.Gender != models.GenderFemale {
		t.Errorf("search prefs = %+v", got)
	}

	deck := store.ReadDeck(ctx, "viewer", 0, 10)
	want := []models.DeckEntry{{CandidateID: "high", Score: 0.9}, {CandidateID: "low", Score: 0.6}}
	if len(deck) != len(want) {
		t.Fatalf("deck = %+v, want %+v", deck, want)
	}
	for i := range want {
		if deck[i] != want[i] {
			t.Errorf("deck[%d] = %+v, want %+v", i, deck[i], want[i])
		}
	}

	if _, ok := store.BuildInstant(ctx, "viewer"); !ok {
		t.Error("build instant not recorded")
	}
	if ttl := mr.TTL("test:deck:viewer"); ttl != time.Hour {
		t.Errorf("deck TTL = %v, want 1h", ttl)
	}
}

func TestBuildDeck_NotWritten(t *testing.T) {
	tests := []struct {
		name    string
		results []models.Profile
		err     error
		decided map[string]bool
	}{
		{name: "empty search", results: nil},
		{name: "search failure", err: errors.New("profiles down")},
		{
			name:    "every candidate decided",
			results: []models.Profile{profile("a", 20, models.GenderFemale), profile("b", 21, models.GenderFemale)},
			decided: map[string]bool{"a": true, "b": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &mockWriter{}
			cfg := testDeckConfig()
			pipeline := NewPipeline(
				NewSearchStage(&mockProfiles{results: tt.results, err: tt.err}, nil, nil, cfg.SearchLimit),
				NewFilterStage(&mockSwipes{decided: tt.decided}, nil, cfg.FilterBatchSize),
				NewScoreStage(scoreByID(nil), 2),
				writer, cfg.PerUserLimit, cfg.TTL,
			)

			res, err := pipeline.BuildDeck(context.Background(), youngWomenViewer())
			if err != nil {
				t.Fatalf("BuildDeck() error = %v", err)
			}
			if res.Outcome != metrics.BuildOutcomeEmpty {
				t.Errorf("outcome = %q, want %q", res.Outcome, metrics.BuildOutcomeEmpty)
			}
			if len(writer.writes) != 0 {
				t.Errorf("writes = %v, want none", writer.writes)
			}
		})
	}
}

func TestBuildDeck_EmptyBuildKeepsPreviousDeck(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	previous := []models.DeckEntry{{CandidateID: "old", Score: 0.5}}
	if err := store.WriteDeck(ctx, "viewer", previous, time.Hour); err != nil {
		t.Fatalf("WriteDeck: %v", err)
	}

	pipeline := New(testDeckConfig(), &mockProfiles{}, &mockSwipes{}, store, nil, nil)
	if _, err := pipeline.BuildDeck(ctx, youngWomenViewer()); err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}

	if got := store.ReadDeck(ctx, "viewer", 0, 10); len(got) != 1 || got[0].CandidateID != "old" {
		t.Errorf("deck = %+v, want previous deck kept", got)
	}
}

func TestBuildDeck_FilterFailOpen(t *testing.T) {
	writer := &mockWriter{}
	swipes := &mockSwipes{
		decided:     map[string]bool{"decided": true},
		failBatches: map[int]bool{0: true},
		err:         errors.New("swipes timeout"),
	}
	pipeline := NewPipeline(
		NewSearchStage(&mockProfiles{results: []models.Profile{
			profile("a", 20, models.GenderFemale),
			profile("decided", 21, models.GenderFemale),
		}}, nil, nil, 10),
		NewFilterStage(swipes, nil, 10),
		NewScoreStage(scoreByID(map[string]float64{"a": 0.2, "decided": 0.7}), 2),
		writer, 10, time.Hour,
	)

	res, err := pipeline.BuildDeck(context.Background(), youngWomenViewer())
	if err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	if res.Written != 2 {
		t.Errorf("written = %d, want 2", res.Written)
	}
	if got := writer.writes["viewer"]; len(got) != 2 || got[0].CandidateID != "decided" {
		t.Errorf("deck = %+v, want unfiltered batch ranked", got)
	}
}

func TestBuildDeck_TakesPerUserLimit(t *testing.T) {
	writer := &mockWriter{}
	pool := candidates("a", "b", "c", "d")
	pipeline := NewPipeline(
		NewSearchStage(&mockProfiles{results: pool}, nil, nil, 10),
		NewFilterStage(&mockSwipes{}, nil, 10),
		NewScoreStage(scoreByID(map[string]float64{"a": 0.1, "b": 0.4, "c": 0.3, "d": 0.2}), 2),
		writer, 2, time.Hour,
	)

	if _, err := pipeline.BuildDeck(context.Background(), youngWomenViewer()); err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	got := writer.writes["viewer"]
	if len(got) != 2 || got[0].CandidateID != "b" || got[1].CandidateID != "c" {
		t.Errorf("deck = %+v, want [b c]", got)
	}
}

func TestBuildDeck_WriteErrorPropagates(t *testing.T) {
	boom := errors.New("redis down")
	pipeline := NewPipeline(
		NewSearchStage(&mockProfiles{results: candidates("a")}, nil, nil, 10),
		NewFilterStage(&mockSwipes{}, nil, 10),
		NewScoreStage(scoreByID(nil), 1),
		&mockWriter{err: boom}, 10, time.Hour,
	)

	res, err := pipeline.BuildDeck(context.Background(), youngWomenViewer())
	if !errors.Is(err, boom) {
		t.Fatalf("BuildDeck() error = %v, want %v", err, boom)
	}
	if res.Outcome != metrics.BuildOutcomeFailed {
		t.Errorf("outcome = %q, want failed", res.Outcome)
	}
}

func TestBuildDeck_EmptyViewerID(t *testing.T) {
	pipeline := New(testDeckConfig(), &mockProfiles{}, &mockSwipes{}, nil, nil, nil)
	if _, err := pipeline.BuildDeck(context.Background(), &models.Profile{}); !errors.Is(err, ErrEmptyViewerID) {
		t.Errorf("BuildDeck() error = %v, want ErrEmptyViewerID", err)
	}
}

func TestNew_BucketCacheEnabled(t *testing.T) {
	store, _ := newTestStore(t)
	cfg := testDeckConfig()
	cfg.BucketCacheEnabled = true

	searcher := &mockProfiles{results: candidates("a", "b")}
	pipeline := New(cfg, searcher, &mockSwipes{}, store, nil, nil)
	ctx := context.Background()

	for _, viewerID := range []string{"v1", "v2"} {
		viewer := youngWomenViewer()
		viewer.ID = viewerID
		if _, err := pipeline.BuildDeck(ctx, viewer); err != nil {
			t.Fatalf("BuildDeck(%s) error = %v", viewerID, err)
		}
	}
	if searcher.callCount() != 1 {
		t.Errorf("remote searches = %d, want 1", searcher.callCount())
	}
	if store.Size(ctx, "v2") != 2 {
		t.Errorf("v2 deck size = %d, want 2", store.Size(ctx, "v2"))
	}
}
