// ABOUTME: API key acquisition for the live session
// ABOUTME: Session endpoint first, GEMINI_API_KEY environment fallback
package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ErrUnavailable means no credential source produced a key.
var ErrUnavailable = errors.New("no API key available")

// EnvVar is the environment fallback consulted when no endpoint is set.
const EnvVar = "GEMINI_API_KEY"

type sessionRequest struct {
	Action string `json:"action"`
}

type sessionResponse struct {
	APIKey string `json:"apiKey"`
}

// Client fetches the API key from the session endpoint. An empty endpoint
// means environment-only operation.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a credentials client for the given endpoint base URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns the API key, preferring the session endpoint and falling
// back to the environment.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	if c.endpoint != "" {
		key, err := c.fetchRemote(ctx)
		if err == nil {
			return key, nil
		}
		if env := os.Getenv(EnvVar); env != "" {
			return env, nil
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if env := os.Getenv(EnvVar); env != "" {
		return env, nil
	}
	return "", ErrUnavailable
}

func (c *Client) fetchRemote(ctx context.Context) (string, error) {
	body, err := json.Marshal(sessionRequest{Action: "getApiKey"})
	if err != nil {
		return "", fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/session", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("session endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session endpoint returned %d", resp.StatusCode)
	}

	var parsed sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}
	if parsed.APIKey == "" {
		return "", errors.New("session endpoint returned an empty key")
	}
	return parsed.APIKey, nil
}
