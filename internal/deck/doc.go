// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

/*
Package deck builds ranked swipe decks and serves them back.

A build runs four steps in strict order for one viewer:

	search -> filter -> score -> take(PerUserLimit) -> write

  - SearchStage sources a candidate pool, from the shared preference-bucket
    cache when every snapshot is present, otherwise from the Profiles
    service. Remote failure fails open to an empty pool.
  - FilterStage drops candidates the viewer already decided on. Batches are
    looked up one at a time to bound load on the Swipes service; a failed
    batch passes through unfiltered.
  - ScoreStage scores candidates on a bounded errgroup and sorts them by
    score, descending, keeping arrival order for ties.
  - Pipeline writes the top entries to the deck cache. An empty result is
    not written.

Reader is the serve-stale read path used by the HTTP API: it returns a page
of the cached deck with per-entry stale flags and asks the scheduler for a
background refresh when the deck is missing or holds stale entries.
*/
package deck
