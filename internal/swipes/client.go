// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

// Package swipes is the HTTP client for the Swipes service's batch decision
// lookup. Like the profiles client it performs single attempts and leaves
// timeouts and retries to the swipes resilience policy.
package swipes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/swipedeck/internal/config"
	"github.com/tomtom215/swipedeck/internal/resilience"
)

const betweenBatchPath = "/api/v1/swipes/between/batch"

// Client calls the Swipes service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg *config.ServiceConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type betweenBatchRequest struct {
	ViewerID     string   `json:"viewer_id"`
	CandidateIDs []string `json:"candidate_ids"`
}

// BetweenBatch reports, per candidate ID, whether a swipe decision already
// exists between the viewer and that candidate. Candidates missing from the
// response are treated as undecided by callers.
func (c *Client) BetweenBatch(ctx context.Context, viewerID string, candidateIDs []string) (map[string]bool, error) {
	if len(candidateIDs) == 0 {
		return map[string]bool{}, nil
	}

	payload, err := json.Marshal(betweenBatchRequest{ViewerID: viewerID, CandidateIDs: candidateIDs})
	if err != nil {
		return nil, fmt.Errorf("encode between batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+betweenBatchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create between batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("between batch for %s: %w", viewerID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &resilience.HTTPStatusError{StatusCode: resp.StatusCode, Method: http.MethodPost, URL: req.URL.String()}
	}

	decided := make(map[string]bool, len(candidateIDs))
	if err := json.NewDecoder(resp.Body).Decode(&decided); err != nil {
		return nil, fmt.Errorf("decode between batch response: %w", err)
	}
	return decided, nil
}
