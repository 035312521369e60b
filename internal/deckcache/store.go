// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

// Package deckcache stores ranked decks and the shared preference-bucket
// cache in Redis.
//
// Every call goes through the Redis resilience policy. Reads degrade to an
// empty result when Redis is unavailable so that the read path and the
// pipeline keep serving; writes return the error to the caller.
package deckcache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/logging"
	"github.com/tomtom215/swipedeck/internal/metrics"
	"github.com/tomtom215/swipedeck/internal/models"
	"github.com/tomtom215/swipedeck/internal/resilience"
)

// staleFanoutChunk bounds the number of viewers written per pipeline when
// marking a candidate stale across all decks.
const staleFanoutChunk = 500

// NewRedisClient creates a go-redis client from configuration.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Options configures a Store.
type Options struct {
	KeyPrefix string

	// DeckTTL bounds the lifetime of stale markers written by fan-out.
	DeckTTL time.Duration

	// BucketTTL is the lifetime of preference buckets and profile snapshots.
	BucketTTL time.Duration
}

// Store is the Redis-backed deck cache. It is safe for concurrent use.
type Store struct {
	rdb       redis.UniversalClient
	keys      keyspace
	deckTTL   time.Duration
	bucketTTL time.Duration
	policy    *resilience.Policy
	logger    zerolog.Logger
}

// NewStore creates a Store. A nil policy runs Redis calls unprotected.
func NewStore(rdb redis.UniversalClient, opts Options, policy *resilience.Policy) *Store {
	return &Store{
		rdb:       rdb,
		keys:      newKeyspace(opts.KeyPrefix),
		deckTTL:   opts.DeckTTL,
		bucketTTL: opts.BucketTTL,
		policy:    policy,
		logger:    logging.WithComponent("deckcache"),
	}
}

// Ping checks Redis connectivity directly, bypassing the policy so that
// health probes never count toward the breaker.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordCacheOperation(op, time.Since(start))
}

// degraded records a read that fell back to its empty default.
func (s *Store) degraded(ctx context.Context, op, viewerID string, err error) {
	metrics.CacheDegradedReads.WithLabelValues(op).Inc()
	logging.Ctx(ctx).Warn().
		Err(err).
		Str("component", "deckcache").
		Str("operation", op).
		Str("viewer_id", viewerID).
		Msg("Cache read degraded")
}

// WriteDeck replaces a viewer's deck atomically: the old deck and its stale
// markers are deleted, the entries added, the TTL set, the build instant
// recorded and the viewer registered as active. An empty entries slice still
// clears the previous deck.
//
// Entries with an empty candidate ID or a NaN score are skipped.
func (s *Store) WriteDeck(ctx context.Context, viewerID string, entries []models.DeckEntry, ttl time.Duration) error {
	if viewerID == "" {
		return ErrEmptyViewerID
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	defer observe("write_deck", time.Now())

	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		if e.CandidateID == "" || math.IsNaN(e.Score) {
			continue
		}
		members = append(members, redis.Z{Score: e.Score, Member: e.CandidateID})
	}

	deckKey := s.keys.deck(viewerID)
	builtAt := strconv.FormatInt(time.Now().UnixMilli(), 10)

	err := s.policy.Do(ctx, func(ctx context.Context) error {
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, deckKey, s.keys.stale(viewerID))
			if len(members) > 0 {
				pipe.ZAdd(ctx, deckKey, members...)
				pipe.Expire(ctx, deckKey, ttl)
			}
			pipe.Set(ctx, s.keys.builtAt(viewerID), builtAt, ttl)
			pipe.SAdd(ctx, s.keys.active(), viewerID)
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("write deck for %s: %w", viewerID, err)
	}
	return nil
}

// ReadDeck returns up to limit entries starting at offset, highest score
// first. Equal scores come back in reverse lexicographic member order.
func (s *Store) ReadDeck(ctx context.Context, viewerID string, offset, limit int64) []models.DeckEntry {
	if offset < 0 || limit <= 0 {
		return []models.DeckEntry{}
	}
	return s.ReadRangeWithScores(ctx, viewerID, offset, offset+limit-1)
}

// ReadTop returns the n highest-scored entries.
func (s *Store) ReadTop(ctx context.Context, viewerID string, n int64) []models.DeckEntry {
	return s.ReadDeck(ctx, viewerID, 0, n)
}

// ReadRangeWithScores returns the entries between the inclusive rank
// indexes start and end, highest score first.
func (s *Store) ReadRangeWithScores(ctx context.Context, viewerID string, start, end int64) []models.DeckEntry {
	defer observe("read_deck", time.Now())

	zs, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]redis.Z, error) {
		return s.rdb.ZRevRangeWithScores(ctx, s.keys.deck(viewerID), start, end).Result()
	})
	if err != nil {
		s.degraded(ctx, "read_deck", viewerID, err)
		return []models.DeckEntry{}
	}

	entries := make([]models.DeckEntry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, models.DeckEntry{CandidateID: id, Score: z.Score})
	}
	return entries
}

// Size returns the number of entries in a viewer's deck.
func (s *Store) Size(ctx context.Context, viewerID string) int64 {
	defer observe("size", time.Now())

	n, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (int64, error) {
		return s.rdb.ZCard(ctx, s.keys.deck(viewerID)).Result()
	})
	if err != nil {
		s.degraded(ctx, "size", viewerID, err)
		return 0
	}
	return n
}

// BuildInstant returns when the viewer's deck was last written. ok is false
// when no timestamp exists or Redis is unavailable.
func (s *Store) BuildInstant(ctx context.Context, viewerID string) (builtAt time.Time, ok bool) {
	defer observe("build_instant", time.Now())

	raw, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.rdb.Get(ctx, s.keys.builtAt(viewerID)).Result()
	})
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false
	}
	if err != nil {
		s.degraded(ctx, "build_instant", viewerID, err)
		return time.Time{}, false
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn().Str("viewer_id", viewerID).Str("value", raw).Msg("Malformed deck build timestamp")
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// Invalidate deletes a viewer's deck, timestamp and stale markers and
// removes the viewer from the active registry. It returns the number of keys
// deleted.
func (s *Store) Invalidate(ctx context.Context, viewerID string) (int64, error) {
	if viewerID == "" {
		return 0, ErrEmptyViewerID
	}
	defer observe("invalidate", time.Now())

	removed, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (int64, error) {
		var del *redis.IntCmd
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, s.keys.deck(viewerID), s.keys.builtAt(viewerID), s.keys.stale(viewerID))
			pipe.SRem(ctx, s.keys.active(), viewerID)
			return nil
		})
		if err != nil {
			return 0, err
		}
		return del.Val(), nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalidate deck for %s: %w", viewerID, err)
	}
	return removed, nil
}

// RemoveFromDeck removes one candidate from a viewer's deck and clears its
// stale marker. It reports whether the candidate was present.
func (s *Store) RemoveFromDeck(ctx context.Context, viewerID, candidateID string) (bool, error) {
	if viewerID == "" {
		return false, ErrEmptyViewerID
	}
	defer observe("remove_from_deck", time.Now())

	removed, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (bool, error) {
		var zrem *redis.IntCmd
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			zrem = pipe.ZRem(ctx, s.keys.deck(viewerID), candidateID)
			pipe.SRem(ctx, s.keys.stale(viewerID), candidateID)
			return nil
		})
		if err != nil {
			return false, err
		}
		return zrem.Val() > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("remove %s from deck %s: %w", candidateID, viewerID, err)
	}
	return removed, nil
}

// CachePreferencesResult adds candidate IDs to a preference bucket and
// resets its TTL. Buckets have set-union semantics: concurrent writers never
// lose IDs. It returns the number of newly added IDs.
func (s *Store) CachePreferencesResult(ctx context.Context, bucket models.PreferenceBucket, candidateIDs []string) (int64, error) {
	members := make([]interface{}, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if id != "" {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return 0, nil
	}
	defer observe("cache_bucket", time.Now())

	key := s.keys.bucket(bucket)
	added, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (int64, error) {
		var sadd *redis.IntCmd
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			sadd = pipe.SAdd(ctx, key, members...)
			if s.bucketTTL > 0 {
				pipe.Expire(ctx, key, s.bucketTTL)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		return sadd.Val(), nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache bucket %s: %w", bucket, err)
	}
	return added, nil
}

// HasPreferencesCache reports whether a bucket exists.
func (s *Store) HasPreferencesCache(ctx context.Context, bucket models.PreferenceBucket) bool {
	defer observe("has_bucket", time.Now())

	n, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (int64, error) {
		return s.rdb.Exists(ctx, s.keys.bucket(bucket)).Result()
	})
	if err != nil {
		s.degraded(ctx, "has_bucket", "", err)
		return false
	}
	return n > 0
}

// CandidatesByPreferences returns the bucket members in sorted order.
func (s *Store) CandidatesByPreferences(ctx context.Context, bucket models.PreferenceBucket) []string {
	defer observe("read_bucket", time.Now())

	ids, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]string, error) {
		return s.rdb.SMembers(ctx, s.keys.bucket(bucket)).Result()
	})
	if err != nil {
		s.degraded(ctx, "read_bucket", "", err)
		return []string{}
	}
	sort.Strings(ids)
	return ids
}

// PreferencesCacheSize returns the number of candidates in a bucket.
func (s *Store) PreferencesCacheSize(ctx context.Context, bucket models.PreferenceBucket) int64 {
	n, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (int64, error) {
		return s.rdb.SCard(ctx, s.keys.bucket(bucket)).Result()
	})
	if err != nil {
		s.degraded(ctx, "bucket_size", "", err)
		return 0
	}
	return n
}

// InvalidatePreferencesCache deletes a bucket. It reports whether the bucket
// existed.
func (s *Store) InvalidatePreferencesCache(ctx context.Context, bucket models.PreferenceBucket) (bool, error) {
	n, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (int64, error) {
		return s.rdb.Del(ctx, s.keys.bucket(bucket)).Result()
	})
	if err != nil {
		return false, fmt.Errorf("invalidate bucket %s: %w", bucket, err)
	}
	return n > 0, nil
}

// MarkAsStaleForAllDecks flags candidateID as stale in every registered
// deck and returns the number of decks touched. The registry is advisory, so
// viewers whose deck already expired are touched too; their marker expires
// with DeckTTL.
func (s *Store) MarkAsStaleForAllDecks(ctx context.Context, candidateID string) (int, error) {
	if candidateID == "" {
		return 0, nil
	}
	defer observe("mark_stale", time.Now())

	viewers, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]string, error) {
		return s.rdb.SMembers(ctx, s.keys.active()).Result()
	})
	if err != nil {
		return 0, fmt.Errorf("list active decks: %w", err)
	}

	touched := 0
	for start := 0; start < len(viewers); start += staleFanoutChunk {
		end := min(start+staleFanoutChunk, len(viewers))
		chunk := viewers[start:end]

		err := s.policy.Do(ctx, func(ctx context.Context) error {
			_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, viewerID := range chunk {
					key := s.keys.stale(viewerID)
					pipe.SAdd(ctx, key, candidateID)
					if s.deckTTL > 0 {
						pipe.Expire(ctx, key, s.deckTTL)
					}
				}
				return nil
			})
			return err
		})
		if err != nil {
			metrics.StaleMarksTotal.Add(float64(touched))
			return touched, fmt.Errorf("mark %s stale: %w", candidateID, err)
		}
		touched += len(chunk)
	}

	metrics.StaleMarksTotal.Add(float64(touched))
	return touched, nil
}

// IsStale reports whether candidateID is flagged stale in the viewer's deck.
func (s *Store) IsStale(ctx context.Context, viewerID, candidateID string) bool {
	ok, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) (bool, error) {
		return s.rdb.SIsMember(ctx, s.keys.stale(viewerID), candidateID).Result()
	})
	if err != nil {
		s.degraded(ctx, "is_stale", viewerID, err)
		return false
	}
	return ok
}

// StaleCandidates returns every candidate flagged stale in the viewer's deck.
func (s *Store) StaleCandidates(ctx context.Context, viewerID string) []string {
	defer observe("read_stale", time.Now())

	ids, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]string, error) {
		return s.rdb.SMembers(ctx, s.keys.stale(viewerID)).Result()
	})
	if err != nil {
		s.degraded(ctx, "read_stale", viewerID, err)
		return []string{}
	}
	sort.Strings(ids)
	return ids
}

// StaleInDeck returns the stale-flagged candidates that are still members of
// the viewer's deck. Markers for candidates outside the deck are kept but not
// returned.
func (s *Store) StaleInDeck(ctx context.Context, viewerID string) []string {
	defer observe("read_stale_in_deck", time.Now())

	ids, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]string, error) {
		stale, err := s.rdb.SMembers(ctx, s.keys.stale(viewerID)).Result()
		if err != nil || len(stale) == 0 {
			return stale, err
		}

		deckKey := s.keys.deck(viewerID)
		cmds := make([]*redis.FloatCmd, len(stale))
		_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range stale {
				cmds[i] = pipe.ZScore(ctx, deckKey, id)
			}
			return nil
		})
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}

		members := make([]string, 0, len(stale))
		for i, cmd := range cmds {
			switch err := cmd.Err(); {
			case err == nil:
				members = append(members, stale[i])
			case !errors.Is(err, redis.Nil):
				return nil, err
			}
		}
		return members, nil
	})
	if err != nil {
		s.degraded(ctx, "read_stale_in_deck", viewerID, err)
		return []string{}
	}
	sort.Strings(ids)
	return ids
}

// ActiveViewers returns the viewers in the active deck registry.
func (s *Store) ActiveViewers(ctx context.Context) []string {
	ids, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]string, error) {
		return s.rdb.SMembers(ctx, s.keys.active()).Result()
	})
	if err != nil {
		s.degraded(ctx, "active_viewers", "", err)
		return []string{}
	}
	sort.Strings(ids)
	return ids
}

// CacheProfiles stores profile snapshots with the bucket TTL so that a
// bucket hit can be served without calling the Profiles service.
func (s *Store) CacheProfiles(ctx context.Context, profiles []models.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	defer observe("cache_profiles", time.Now())

	payloads := make(map[string][]byte, len(profiles))
	for i := range profiles {
		if profiles[i].ID == "" {
			continue
		}
		data, err := json.Marshal(&profiles[i])
		if err != nil {
			return fmt.Errorf("encode profile %s: %w", profiles[i].ID, err)
		}
		payloads[profiles[i].ID] = data
	}

	err := s.policy.Do(ctx, func(ctx context.Context) error {
		_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for id, data := range payloads {
				pipe.Set(ctx, s.keys.profile(id), data, s.bucketTTL)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("cache profiles: %w", err)
	}
	return nil
}

// Profiles returns the cached snapshots for ids, keyed by profile ID.
// Missing or undecodable snapshots are absent from the result.
func (s *Store) Profiles(ctx context.Context, ids []string) map[string]models.Profile {
	out := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return out
	}
	defer observe("read_profiles", time.Now())

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.profile(id)
	}

	values, err := resilience.Execute(ctx, s.policy, func(ctx context.Context) ([]interface{}, error) {
		return s.rdb.MGet(ctx, keys...).Result()
	})
	if err != nil {
		s.degraded(ctx, "read_profiles", "", err)
		return out
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p models.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			s.logger.Warn().Err(err).Str("profile_id", ids[i]).Msg("Skipping undecodable profile snapshot")
			continue
		}
		out[ids[i]] = p
	}
	return out
}
