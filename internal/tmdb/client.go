// Package tmdb maps TMDB ids to the IMDb and TVDB ids the catalogs key on.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"

	"github.com/vmunix/rotarr/internal/media"
)

const defaultBaseURL = "https://api.themoviedb.org"
const defaultCacheTTL = 24 * time.Hour

var (
	// ErrNotFound is returned when TMDB has no record for the id.
	ErrNotFound = errors.New("tmdb: title not found")
	// ErrUnauthorized is returned when the API key is rejected.
	ErrUnauthorized = errors.New("tmdb: invalid api key")
)

// Client is a TMDB v3 client limited to external id lookups.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *cache
	retries    uint
	retryDelay time.Duration
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithCacheTTL sets the cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = newCache(ttl)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n uint, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.retryDelay = delay
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "tmdb")
	}
}

// NewClient creates a new TMDB client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:      newCache(defaultCacheTTL),
		retries:    1,
		retryDelay: time.Second,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExternalIDs returns the cross-references for a TMDB movie or tv id.
// Results, including empty ones, are cached per kind and id.
func (c *Client) ExternalIDs(ctx context.Context, kind media.Kind, tmdbID int64) (ExternalIDs, error) {
	segment := "movie"
	if kind == media.KindShow {
		segment = "tv"
	}
	key := cacheKey{kind: segment, id: tmdbID}
	if ids, ok := c.cache.get(key); ok {
		return ids, nil
	}

	var ids ExternalIDs
	err := retry.Do(
		func() error {
			return c.fetch(ctx, fmt.Sprintf("/3/%s/%d/external_ids", segment, tmdbID), &ids)
		},
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("retrying tmdb request", "tmdb_id", tmdbID, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return ExternalIDs{}, err
	}

	c.cache.set(key, ids)
	return ids, nil
}

func (c *Client) fetch(ctx context.Context, path string, out any) error {
	u := c.baseURL + path + "?" + url.Values{"api_key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("tmdb API error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrUnauthorized) && !errors.Is(err, context.Canceled)
}
