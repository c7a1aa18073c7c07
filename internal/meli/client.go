// Package meli is the MercadoLibre API client used by the sync pipeline.
//
// All authenticated calls go through a shared transport that attaches the
// current access token and, on the first authorization failure, refreshes the
// token pair once and replays the request. A second failure propagates.
package meli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrUnauthorized is returned when a call fails authorization and the token
// pair cannot be (or already was) refreshed.
var ErrUnauthorized = errors.New("marketplace authorization failed")

// APIError is a non-2xx response from the marketplace
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// TokenPair is the persisted access/refresh token pair
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore supplies the current token pair and persists replacements.
// Implementations must return the most recently saved pair.
type TokenStore interface {
	Current() (TokenPair, error)
	Save(TokenPair) error
}

// Config holds client credentials and hosts
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
	AuthBaseURL  string
}

// Client is the marketplace API client
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     TokenStore
	logger     *slog.Logger

	// Serializes token refreshes so concurrent 401s trigger one exchange
	refreshMu sync.Mutex
}

// NewClient creates a marketplace client. The http.Client is optional.
func NewClient(cfg Config, tokens TokenStore, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

// getJSON performs an authenticated GET and decodes the JSON response.
// On the first 401 it refreshes the token pair and replays the request once.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, headers map[string]string, out any) error {
	pair, err := c.tokens.Current()
	if err != nil {
		return fmt.Errorf("no usable token: %w", err)
	}

	status, err := c.doGet(ctx, path, query, headers, pair.AccessToken, out)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return nil
	}

	// First authorization failure: refresh once and replay
	replayPair, err := c.refreshedPair(ctx, pair)
	if err != nil {
		return err
	}

	status, err = c.doGet(ctx, path, query, headers, replayPair.AccessToken, out)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: token rejected after refresh", ErrUnauthorized)
	}
	return nil
}

// refreshedPair exchanges the refresh token for a new pair and persists it.
// When another caller already refreshed, the newer stored pair is reused
// instead of spending a second refresh.
func (c *Client) refreshedPair(ctx context.Context, failed TokenPair) (TokenPair, error) {
	if failed.RefreshToken == "" {
		return TokenPair{}, fmt.Errorf("%w: no refresh token available", ErrUnauthorized)
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current, err := c.tokens.Current(); err == nil && current.AccessToken != failed.AccessToken {
		return current, nil
	}

	c.logger.Warn("Access token rejected, refreshing token pair")

	token, err := c.RefreshToken(ctx, failed.RefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: refresh failed: %v", ErrUnauthorized, err)
	}

	pair := TokenPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
	if err := c.tokens.Save(pair); err != nil {
		return TokenPair{}, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return pair, nil
}

// doGet issues one GET with the given access token. A 401 is reported via the
// returned status, not as an error, so the caller can decide to refresh.
func (c *Client) doGet(ctx context.Context, path string, query url.Values, headers map[string]string, accessToken string, out any) (int, error) {
	u := strings.TrimRight(c.cfg.APIBaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return http.StatusUnauthorized, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			URL:        u,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// getPublicJSON performs an unauthenticated GET (classified locations)
func (c *Client) getPublicJSON(ctx context.Context, path string, out any) error {
	u := strings.TrimRight(c.cfg.APIBaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{
			StatusCode: resp.StatusCode,
			URL:        u,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
