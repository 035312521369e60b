// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

// Package testinfra provides container helpers for integration tests.
//
// Everything here is behind the "integration" build tag:
//
//	go test -tags integration ./internal/deckcache/...
//
// # Redis Container
//
// RedisContainer runs a real Redis for tests that depend on behavior
// miniredis does not model, such as key expiry under a live clock and
// pipelined fan-out against a real server:
//
//	func TestDeckRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc)
//
//	    rdb := redis.NewClient(&redis.Options{Addr: rc.Addr})
//	    // ...
//	}
//
// Tests skip when Docker is unavailable.
package testinfra
