// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/metrics"
	"github.com/tomtom215/swipedeck/internal/models"
)

// Scorer computes a compatibility score for a candidate. Implementations
// must be pure and safe for concurrent use. Higher is better; zero and
// negative scores are kept.
type Scorer interface {
	Score(viewer, candidate models.Profile) float64
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(viewer, candidate models.Profile) float64

// Score calls f.
//
//nolint:gocritic // profiles are passed by value so scorers cannot mutate them
func (f ScorerFunc) Score(viewer, candidate models.Profile) float64 {
	return f(viewer, candidate)
}

// ScoreStage scores candidates on a bounded worker group and ranks them.
type ScoreStage struct {
	scorer      Scorer
	parallelism int
	logger      zerolog.Logger
}

// NewScoreStage creates a scoring stage. A non-positive parallelism uses
// runtime.NumCPU().
func NewScoreStage(scorer Scorer, parallelism int) *ScoreStage {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &ScoreStage{
		scorer:      scorer,
		parallelism: parallelism,
		logger:      logging.WithComponent("deck").With().Str("stage", "score").Logger(),
	}
}

// Rank scores every candidate and returns them sorted by score descending.
// Ties keep their arrival order. Candidates whose score is NaN, or whose
// scorer panics, are skipped. The only error is the context's.
func (s *ScoreStage) Rank(ctx context.Context, viewer *models.Profile, candidates []models.Profile) ([]models.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]models.ScoredCandidate, len(candidates))
	ok := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := s.scoreOne(viewer, &candidates[i])
			if err != nil {
				s.logger.Warn().Err(err).
					Str("viewer_id", viewer.ID).
					Str("candidate_id", candidates[i].ID).
					Msg("skipping candidate")
				return nil
			}
			results[i] = models.ScoredCandidate{Profile: candidates[i], Score: score}
			ok[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring canceled: %w", err)
	}

	ranked := results[:0]
	for i := range results {
		if ok[i] {
			ranked = append(ranked, results[i])
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})

	metrics.DeckStageCandidates.WithLabelValues("score").Add(float64(len(ranked)))
	return ranked, nil
}

func (s *ScoreStage) scoreOne(viewer, candidate *models.Profile) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panic: %v", r)
		}
	}()
	score = s.scorer.Score(*viewer, *candidate)
	if math.IsNaN(score) {
		return 0, fmt.Errorf("scorer returned NaN")
	}
	return score, nil
}
