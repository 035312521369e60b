// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

// Package services adapts swipedeck components to suture.Service.
//
// The event consumer implements Serve itself. The scheduler exposes a
// Start/Stop lifecycle and the HTTP server blocks in ListenAndServe, so
// both are wrapped here:
//
//	tree.AddWorker(services.NewSchedulerService(sched))
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
package services
