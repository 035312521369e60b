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

// SearchStage produces the candidate pool for a viewer.
type SearchStage struct {
	profiles ProfileSearcher
	buckets  BucketCache // nil disables the shared bucket cache
	policy   *resilience.Policy
	limit    int
	logger   zerolog.Logger
}

// NewSearchStage creates a search stage. buckets may be nil.
func NewSearchStage(profiles ProfileSearcher, buckets BucketCache, policy *resilience.Policy, limit int) *SearchStage {
	return &SearchStage{
		profiles: profiles,
		buckets:  buckets,
		policy:   policy,
		limit:    limit,
		logger:   logging.WithComponent("deck").With().Str("stage", "search").Logger(),
	}
}

// Search returns the candidates matching the viewer's preferences, excluding
// the viewer. It never returns an error: a failed remote search yields an
// empty pool.
func (s *SearchStage) Search(ctx context.Context, viewer *models.Profile) []models.Profile {
	prefs := viewer.EffectivePreferences()

	bucket, bucketErr := models.NewPreferenceBucket(prefs.MinAge, prefs.MaxAge, string(prefs.Gender))
	useBucket := s.buckets != nil && bucketErr == nil
	if bucketErr != nil {
		s.logger.Debug().Err(bucketErr).Str("viewer_id", viewer.ID).Msg("preferences do not form a bucket, skipping bucket cache")
	}

	if useBucket {
		if pool, ok := s.fromBucket(ctx, bucket, viewer.ID); ok {
			metrics.BucketCacheHits.Inc()
			metrics.DeckStageCandidates.WithLabelValues("search").Add(float64(len(pool)))
			return pool
		}
		metrics.BucketCacheMisses.Inc()
	}

	found, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]models.Profile, error) {
		return s.profiles.SearchProfiles(ctx, viewer.ID, prefs, s.limit)
	})
	if err != nil {
		metrics.DeckStageFailOpen.WithLabelValues("search").Inc()
		s.logger.Warn().Err(err).Str("viewer_id", viewer.ID).Msg("profile search failed, continuing with empty pool")
		return nil
	}

	if useBucket && len(found) > 0 {
		s.populate(ctx, bucket, found)
	}

	pool := make([]models.Profile, 0, len(found))
	for i := range found {
		if found[i].ID == "" || found[i].ID == viewer.ID {
			continue
		}
		pool = append(pool, found[i])
	}
	metrics.DeckStageCandidates.WithLabelValues("search").Add(float64(len(pool)))
	return pool
}

// fromBucket serves the pool from the bucket cache. It only reports a hit
// when every member has a cached snapshot; a partial snapshot set is
// treated as a miss.
func (s *SearchStage) fromBucket(ctx context.Context, bucket models.PreferenceBucket, viewerID string) ([]models.Profile, bool) {
	if !s.buckets.HasPreferencesCache(ctx, bucket) {
		return nil, false
	}
	ids := s.buckets.CandidatesByPreferences(ctx, bucket)
	if len(ids) == 0 {
		return nil, false
	}
	snapshots := s.buckets.Profiles(ctx, ids)
	if len(snapshots) != len(ids) {
		s.logger.Debug().
			Str("bucket", bucket.String()).
			Int("members", len(ids)).
			Int("snapshots", len(snapshots)).
			Msg("bucket snapshots incomplete, falling back to search")
		return nil, false
	}

	pool := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		if id == viewerID {
			continue
		}
		if s.limit > 0 && len(pool) >= s.limit {
			break
		}
		pool = append(pool, snapshots[id])
	}
	return pool, true
}

// populate stores the remote result in the bucket cache. Snapshots are
// written before membership so that a visible bucket has its profiles.
func (s *SearchStage) populate(ctx context.Context, bucket models.PreferenceBucket, found []models.Profile) {
	ids := make([]string, 0, len(found))
	for i := range found {
		if found[i].ID != "" {
			ids = append(ids, found[i].ID)
		}
	}
	if err := s.buckets.CacheProfiles(ctx, found); err != nil {
		s.logger.Warn().Err(err).Str("bucket", bucket.String()).Msg("failed to cache profile snapshots")
		return
	}
	if _, err := s.buckets.CachePreferencesResult(ctx, bucket, ids); err != nil {
		s.logger.Warn().Err(err).Str("bucket", bucket.String()).Msg("failed to cache bucket membership")
	}
}
