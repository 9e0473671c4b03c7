// Package trakt is a minimal client for the public Trakt API.
package trakt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
)

const defaultBaseURL = "https://api.trakt.tv"

// Sentinel errors for Trakt API responses.
var (
	ErrMissingClientID = errors.New("trakt client id not configured")
	ErrUnauthorized    = errors.New("unauthorized: invalid trakt client id")
	ErrNotFound        = errors.New("trakt resource not found")
	ErrRateLimited     = errors.New("rate limited: too many requests")
)

// Client is a Trakt API v2 client authenticated with an application client id.
type Client struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
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

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
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
		c.log = log.With("component", "trakt")
	}
}

// New creates a new Trakt client.
func New(clientID string, opts ...Option) *Client {
	c := &Client{
		clientID: clientID,
		baseURL:  defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retries:    1,
		retryDelay: time.Second,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TrendingMovies returns up to limit trending movies.
func (c *Client) TrendingMovies(ctx context.Context, limit int) ([]TrendingMovie, error) {
	var out []TrendingMovie
	if err := c.get(ctx, "/movies/trending", limitParams(limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TrendingShows returns up to limit trending shows.
func (c *Client) TrendingShows(ctx context.Context, limit int) ([]TrendingShow, error) {
	var out []TrendingShow
	if err := c.get(ctx, "/shows/trending", limitParams(limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserLists returns the public lists owned by user.
func (c *Client) UserLists(ctx context.Context, user string) ([]List, error) {
	var out []List
	if err := c.get(ctx, "/users/"+url.PathEscape(user)+"/lists", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListItems returns every item on the list user/slug.
func (c *Client) ListItems(ctx context.Context, user, slug string) ([]ListItem, error) {
	var out []ListItem
	endpoint := "/users/" + url.PathEscape(user) + "/lists/" + url.PathEscape(slug) + "/items"
	if err := c.get(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func limitParams(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

// retryable reports whether a failed request may succeed on a later attempt.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return "trakt API error: " + e.status
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.clientID == "" {
		return ErrMissingClientID
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	err := retry.Do(
		func() error { return c.getOnce(ctx, reqURL, out) },
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.retryDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("retrying request", "endpoint", endpoint, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	c.log.Debug("request complete", "endpoint", endpoint, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) getOnce(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-key", c.clientID)
	req.Header.Set("trakt-api-version", "2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
