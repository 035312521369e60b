// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/metrics"
	"github.com/tomtom215/swipedeck/internal/models"
	"github.com/tomtom215/swipedeck/internal/resilience"
)

// DefaultFilterBatchSize is used when the configured batch size is not positive.
const DefaultFilterBatchSize = 200

// FilterStage removes candidates the viewer has already swiped on.
type FilterStage struct {
	swipes    SwipeLookup
	policy    *resilience.Policy
	batchSize int
	logger    zerolog.Logger
}

// NewFilterStage creates a filter stage.
func NewFilterStage(swipes SwipeLookup, policy *resilience.Policy, batchSize int) *FilterStage {
	if batchSize <= 0 {
		batchSize = DefaultFilterBatchSize
	}
	return &FilterStage{
		swipes:    swipes,
		policy:    policy,
		batchSize: batchSize,
		logger:    logging.WithComponent("deck").With().Str("stage", "filter").Logger(),
	}
}

// Filter returns the undecided candidates in their original order.
//
// Batches are looked up sequentially. When a lookup fails the whole batch
// passes through unfiltered. Candidates without an ID are dropped.
func (f *FilterStage) Filter(ctx context.Context, viewerID string, candidates []models.Profile) []models.Profile {
	valid := make([]models.Profile, 0, len(candidates))
	for i := range candidates {
		if candidates[i].ID == "" {
			f.logger.Debug().Str("viewer_id", viewerID).Msg("dropping candidate without id")
			continue
		}
		valid = append(valid, candidates[i])
	}

	kept := make([]models.Profile, 0, len(valid))
	for start := 0; start < len(valid); start += f.batchSize {
		end := start + f.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]

		ids := make([]string, len(batch))
		for i := range batch {
			ids[i] = batch[i].ID
		}

		decided, err := resilience.Execute(ctx, f.policy, func(ctx context.Context) (map[string]bool, error) {
			return f.swipes.BetweenBatch(ctx, viewerID, ids)
		})
		if err != nil {
			metrics.DeckStageFailOpen.WithLabelValues("filter").Inc()
			f.logger.Warn().Err(err).
				Str("viewer_id", viewerID).
				Int("batch_size", len(batch)).
				Msg("swipe lookup failed, keeping batch unfiltered")
			kept = append(kept, batch...)
			continue
		}

		for i := range batch {
			if !decided[batch[i].ID] {
				kept = append(kept, batch[i])
			}
		}
	}

	metrics.DeckStageCandidates.WithLabelValues("filter").Add(float64(len(kept)))
	return kept
}
