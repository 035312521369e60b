// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/metrics"
	"github.com/tomtom215/swipedeck/internal/models"
	"github.com/tomtom215/swipedeck/internal/resilience"
)

// ErrEmptyViewerID is returned by BuildDeck for a viewer without an ID.
var ErrEmptyViewerID = errors.New("viewer id is empty")

// Store is the cache surface the pipeline needs: deck writes plus the
// preference-bucket cache. *deckcache.Store satisfies it.
type Store interface {
	DeckWriter
	BucketCache
}

// BuildResult summarizes one viewer build.
type BuildResult struct {
	ViewerID   string
	Searched   int
	Filtered   int
	Scored     int
	Written    int
	Outcome    string
	Duration   time.Duration
	BuiltAtUTC time.Time
}

// Pipeline builds and stores one viewer's deck. It is safe for concurrent
// use across viewers.
type Pipeline struct {
	search       *SearchStage
	filter       *FilterStage
	score        *ScoreStage
	writer       DeckWriter
	perUserLimit int
	ttl          time.Duration
	logger       zerolog.Logger
}

// NewPipeline assembles a pipeline from already built stages.
func NewPipeline(search *SearchStage, filter *FilterStage, score *ScoreStage, writer DeckWriter, perUserLimit int, ttl time.Duration) *Pipeline {
	return &Pipeline{
		search:       search,
		filter:       filter,
		score:        score,
		writer:       writer,
		perUserLimit: perUserLimit,
		ttl:          ttl,
		logger:       logging.WithComponent("deck"),
	}
}

// New builds a pipeline from configuration. scorer may be nil, in which case
// the CompatibilityScorer is used.
func New(cfg *config.DeckConfig, profiles ProfileSearcher, swipes SwipeLookup, store Store, policies *resilience.Registry, scorer Scorer) *Pipeline {
	if scorer == nil {
		scorer = NewCompatibilityScorer()
	}

	var profilePolicy, swipePolicy *resilience.Policy
	if policies != nil {
		profilePolicy, swipePolicy = policies.Profiles, policies.Swipes
	}

	var buckets BucketCache
	if cfg.BucketCacheEnabled {
		buckets = store
	}

	return NewPipeline(
		NewSearchStage(profiles, buckets, profilePolicy, cfg.SearchLimit),
		NewFilterStage(swipes, swipePolicy, cfg.FilterBatchSize),
		NewScoreStage(scorer, cfg.ScoringParallelism),
		store,
		cfg.PerUserLimit,
		cfg.TTL,
	)
}

// BuildDeck runs search, filter, score and take for the viewer, then writes
// the deck when it is non-empty. Dependency failures inside search and
// filter are absorbed by those stages; a cache write failure or a canceled
// context is returned.
func (p *Pipeline) BuildDeck(ctx context.Context, viewer *models.Profile) (BuildResult, error) {
	start := time.Now()
	res := BuildResult{ViewerID: viewer.ID}

	if viewer.ID == "" {
		return res, ErrEmptyViewerID
	}

	logger := p.logger.With().Str("viewer_id", viewer.ID).Logger()

	fail := func(err error) (BuildResult, error) {
		res.Outcome = metrics.BuildOutcomeFailed
		res.Duration = time.Since(start)
		metrics.RecordDeckBuild(res.Outcome, res.Duration, 0)
		logger.Warn().Err(err).Dur("duration", res.Duration).Msg("deck build failed")
		return res, err
	}

	candidates := p.search.Search(ctx, viewer)
	res.Searched = len(candidates)

	candidates = p.filter.Filter(ctx, viewer.ID, candidates)
	res.Filtered = len(candidates)

	ranked, err := p.score.Rank(ctx, viewer, candidates)
	if err != nil {
		return fail(err)
	}
	res.Scored = len(ranked)

	if p.perUserLimit > 0 && len(ranked) > p.perUserLimit {
		ranked = ranked[:p.perUserLimit]
	}

	if len(ranked) == 0 {
		res.Outcome = metrics.BuildOutcomeEmpty
		res.Duration = time.Since(start)
		metrics.RecordDeckBuild(res.Outcome, res.Duration, 0)
		logger.Debug().Int("searched", res.Searched).Int("filtered", res.Filtered).Msg("no candidates, deck not written")
		return res, nil
	}

	entries := make([]models.DeckEntry, len(ranked))
	for i := range ranked {
		entries[i] = ranked[i].Entry()
	}

	if err := p.writer.WriteDeck(ctx, viewer.ID, entries, p.ttl); err != nil {
		return fail(fmt.Errorf("write deck: %w", err))
	}

	res.Written = len(entries)
	res.Outcome = metrics.BuildOutcomeWritten
	res.Duration = time.Since(start)
	res.BuiltAtUTC = time.Now().UTC()
	metrics.RecordDeckBuild(res.Outcome, res.Duration, res.Written)

	logger.Debug().
		Int("searched", res.Searched).
		Int("filtered", res.Filtered).
		Int("written", res.Written).
		Dur("duration", res.Duration).
		Msg("deck built")

	return res, nil
}
