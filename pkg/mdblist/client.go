// Package mdblist is a minimal client for MDBList curated lists.
package mdblist

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
)

const defaultBaseURL = "https://mdblist.com/api"

// DefaultUser owns the lists used when no list is configured.
const DefaultUser = "hd-movie-lists"

// Sentinel errors for MDBList API responses.
var (
	ErrNotFound     = errors.New("mdblist resource not found")
	ErrUnauthorized = errors.New("unauthorized: invalid mdblist api key")
	ErrRateLimited  = errors.New("rate limited: too many requests")
)

// List is a list summary owned by a user.
type List struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// Item is one title on a list. Type is "movie" or "show".
type Item struct {
	Title  string `json:"title"`
	Type   string `json:"type"`
	IMDBID ID     `json:"imdb_id"`
	TVDBID ID     `json:"tvdb_id"`
	TMDBID ID     `json:"tmdb_id"`
}

// ID is an external identifier that MDBList encodes as either a string or a number.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("mdblist id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type userResponse struct {
	Lists []List `json:"lists"`
}

type itemsResponse struct {
	Items []Item `json:"items"`
}

// Client is an MDBList API client. The api key is optional for public lists.
type Client struct {
	apiKey     string
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
		c.log = log.With("component", "mdblist")
	}
}

// New creates a new MDBList client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
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

// UserLists returns the lists published by user.
func (c *Client) UserLists(ctx context.Context, user string) ([]List, error) {
	var resp userResponse
	if err := c.get(ctx, "/user/"+url.PathEscape(user), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// ListItems returns the items of user/slug.
func (c *Client) ListItems(ctx context.Context, user, slug string) ([]Item, error) {
	var resp itemsResponse
	params := url.Values{"list": {user + "/" + slug}}
	if err := c.get(ctx, "/", params, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return "mdblist API error: " + e.status
}

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

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

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
	return nil
}

func (c *Client) getOnce(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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
