package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultIndexTTL = 2 * time.Minute
	maxErrorBody    = 4096
)

// Config holds the connection and placement settings of one catalog.
type Config struct {
	URL               string
	APIKey            string
	RootFolder        string
	QualityProfileID  int
	LanguageProfileID int // Sonarr only
	Timeout           time.Duration
	Retries           uint
}

// Option configures an adapter.
type Option func(*arrClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *arrClient) {
		c.httpClient = hc
	}
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *arrClient) {
		c.retryDelay = d
	}
}

// WithIndexTTL sets how long a fetched library index is reused.
func WithIndexTTL(ttl time.Duration) Option {
	return func(c *arrClient) {
		c.index = newIndex(ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *arrClient) {
		c.log = log
	}
}

// APIError is a non-2xx response from a catalog.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// arrClient is the HTTP core shared by the Radarr and Sonarr adapters.
type arrClient struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    uint
	retryDelay time.Duration
	index      *index
	log        *slog.Logger
}

func newArrClient(name string, cfg Config, opts []Option) *arrClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &arrClient{
		name:       name,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		retries:    cfg.Retries,
		retryDelay: time.Second,
		index:      newIndex(defaultIndexTTL),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", name)
	return c
}

// retryable reports whether a failed request may succeed on a later attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrUnauthorized)
}

// do performs an API request with retries. POSTs that create items are not
// retried since a timed-out add may still have been applied.
func (c *arrClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	attempts := c.retries + 1
	if method == http.MethodPost && !strings.HasSuffix(path, "/command") {
		attempts = 1
	}
	return retry.Do(
		func() error { return c.doOnce(ctx, method, path, query, body, out) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("retrying request", "method", method, "path", path, "attempt", n+1, "error", err)
		}),
	)
}

func (c *arrClient) doOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("catalog request", "method", method, "path", path, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// library returns the cached id index, fetching it with load on a miss.
func (c *arrClient) library(ctx context.Context, fresh bool, load func(context.Context) (map[string]int64, error)) (map[string]int64, error) {
	if !fresh {
		if ids, ok := c.index.get(); ok {
			return ids, nil
		}
	}
	ids, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.index.set(ids)
	return ids, nil
}

// isAlreadyExists recognises the validation message both Radarr and Sonarr
// return when an item is added twice.
func isAlreadyExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		return false
	}
	body := strings.ToLower(apiErr.Body)
	return strings.Contains(body, "already exists") || strings.Contains(body, "already been added")
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type command struct {
	Name     string  `json:"name"`
	MovieIDs []int64 `json:"movieIds,omitempty"`
	SeriesID int64   `json:"seriesId,omitempty"`
}

func deleteQuery() url.Values {
	return url.Values{
		"deleteFiles":        {"true"},
		"addImportExclusion": {"true"},
	}
}
