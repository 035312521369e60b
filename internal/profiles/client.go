// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

/*
Package profiles is the HTTP client for the Profiles service.

Endpoints used:

	POST /api/v1/profiles/search   {viewer_id, preferences, limit} -> []Profile
	GET  /api/v1/profiles/active   -> []Profile
	GET  /api/v1/profiles/{id}     -> Profile

The client performs single attempts. Timeouts, retries and the circuit
breaker are applied by the caller through the profiles resilience policy.
Non-2xx responses are returned as *resilience.HTTPStatusError so the policy
can classify them.
*/
package profiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/models"
	"github.com/tomtom215/swipedeck/internal/resilience"
)

// ErrProfileNotFound is returned by GetProfile for unknown IDs.
var ErrProfileNotFound = errors.New("profile not found")

// Client calls the Profiles service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Profiles client. The http.Client timeout is only an
// outer bound; per-attempt timeouts come from the caller's context.
func NewClient(cfg *config.ServiceConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type searchRequest struct {
	ViewerID    string             `json:"viewer_id"`
	Preferences models.Preferences `json:"preferences"`
	Limit       int                `json:"limit"`
}

// SearchProfiles returns up to limit candidates matching prefs for viewerID.
func (c *Client) SearchProfiles(ctx context.Context, viewerID string, prefs models.Preferences, limit int) ([]models.Profile, error) {
	body := searchRequest{ViewerID: viewerID, Preferences: prefs, Limit: limit}

	var profiles []models.Profile
	if err := c.do(ctx, http.MethodPost, "/api/v1/profiles/search", body, &profiles); err != nil {
		return nil, fmt.Errorf("search profiles for %s: %w", viewerID, err)
	}
	return profiles, nil
}

// GetActiveUsers returns every active profile.
func (c *Client) GetActiveUsers(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles/active", nil, &profiles); err != nil {
		return nil, fmt.Errorf("get active users: %w", err)
	}
	return profiles, nil
}

// GetProfile returns a single profile. Unknown IDs yield ErrProfileNotFound.
func (c *Client) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+url.PathEscape(id), nil, &profile)
	if err != nil {
		var statusErr *resilience.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return models.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
		}
		return models.Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &resilience.HTTPStatusError{StatusCode: resp.StatusCode, Method: method, URL: req.URL.String()}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
