/*

This file contains the shared HTTP plumbing for the external data clients.

Both the DeFindex vault reads and the Soroswap quote lookups are plain
JSON-over-HTTP; the helpers here own the timeout, status handling, and
body decoding so the per-endpoint clients stay small.

*/

package datafetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	requestTimeout = 20 * time.Second

	// maxResponseBytes bounds how much of a response body we are willing to
	// read. Vault batches are small; anything near this limit is a broken
	// upstream, not real data.
	maxResponseBytes = 4 << 20
)

var ErrUpstreamUnavailable = errors.New("upstream data source unavailable")

var httpClient = &http.Client{
	Timeout: requestTimeout,
}

// postJSON encodes the payload, POSTs it to the URL, and decodes the JSON
// response into target. Non-2xx statuses are errors carrying the body text.
func postJSON(ctx context.Context, url string, payload any, target any, log zerolog.Logger) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return doJSON(req, target, log)
}

// getJSON performs a GET against the URL and decodes the JSON response into
// target.
func getJSON(ctx context.Context, url string, target any, log zerolog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return doJSON(req, target, log)
}

func doJSON(req *http.Request, target any, log zerolog.Logger) error {
	started := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		log.Error().
			Err(err).
			Str("url", req.URL.String()).
			Msg("HTTP request failed")
		return errors.Join(ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Error().
			Err(err).
			Str("url", req.URL.String()).
			Msg("Failed to read response body")
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Upstream returned non-success status")
		return fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		log.Error().
			Err(err).
			Str("url", req.URL.String()).
			Msg("Failed to decode response body")
		return fmt.Errorf("failed to decode response: %w", err)
	}

	log.Debug().
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("HTTP request completed")

	return nil
}
