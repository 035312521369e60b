// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

/*
Package api exposes the deck cache over HTTP using the Chi router.

Routes:

	GET    /api/v1/health/live              liveness
	GET    /api/v1/health/ready             Redis ping and breaker states
	GET    /metrics                         Prometheus exposition
	GET    /api/v1/decks                    viewers in the active deck registry
	GET    /api/v1/decks/{viewerID}         one page of a deck (offset, limit)
	POST   /api/v1/decks/{viewerID}/rebuild enqueue a background rebuild (202)
	DELETE /api/v1/decks/{viewerID}         invalidate a deck

Deck reads never block on a rebuild. A missing deck is an empty page with
"refreshing": true; clients retry later.

Every response uses the models.APIResponse envelope.
*/
package api
