// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

/*
Package config provides layered configuration for the deck service.

# Configuration Sources

Values are resolved with Koanf v2 in this order, later sources winning:
  - Built-in defaults (defaultConfig)
  - Optional YAML file (config.yaml, /etc/swipedeck/config.yaml, or CONFIG_PATH)
  - Environment variables (see envMappings)

# Resilience Policies

Each dependency class (profiles, swipes, redis) has its own PolicyConfig.
Every field can be overridden with RESILIENCE_<CLASS>_<FIELD>, for example:

	RESILIENCE_PROFILES_TIMEOUT=3s
	RESILIENCE_REDIS_CB_FAILURE_RATE=40
	RESILIENCE_SWIPES_BULKHEAD_MAX_CALLS=20

# Example YAML

	redis:
	  addr: "redis:6379"
	deck:
	  per_user_limit: 150
	  ttl: 12h
	scheduler:
	  interval: 10m
	resilience:
	  profiles:
	    timeout: 3s
	    circuit_breaker_open_wait_duration: 1m
*/
package config
