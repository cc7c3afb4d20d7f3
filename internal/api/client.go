// Package api provides the HTTP client for the study-abroad platform
// REST API. It handles JSON encoding, bearer token injection, retry
// with backoff, and server error message extraction.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Observer receives a callback for every completed request. A status of
// zero means the request failed before a response was received.
type Observer interface {
	ObserveRequest(method, path string, status int, duration time.Duration)
}

// Client is the HTTP client for the platform API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	tokens     TokenSource
	limiter    *rate.Limiter
	retry      RetryConfig
	observer   Observer
	log        *zap.Logger
	mu         sync.RWMutex
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:8080". Required.
	BaseURL string

	// Timeout is the per-request timeout. Default: 30s.
	Timeout time.Duration

	// Tokens supplies the bearer credential. Optional; requests go out
	// unauthenticated when nil or when the source yields "".
	Tokens TokenSource

	// Headers are additional default headers for all requests.
	Headers map[string]string

	// Retry overrides the default retry behavior.
	Retry *RetryConfig

	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64

	// Observer receives per-request metrics callbacks. Optional.
	Observer Observer

	// Logger is used for debug logging. Optional.
	Logger *zap.Logger
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries  int
	RetryDelay  time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	ShouldRetry func(resp *http.Response, err error) bool
}

// DefaultRetryConfig returns the default retry configuration: three
// attempts with exponential backoff on transport errors, 5xx and 429.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		ShouldRetry: func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		},
	}
}

// NewClient creates a new API client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = DefaultRetryConfig().ShouldRetry
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		headers:  map[string]string{"Accept": "application/json"},
		tokens:   opts.Tokens,
		retry:    retry,
		observer: opts.Observer,
		log:      logger,
	}
	for k, v := range opts.Headers {
		c.headers[k] = v
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c, nil
}

// Request describes a single API call.
type Request struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     map[string]string

	// Body is JSON-encoded when non-nil.
	Body any

	// RawBody takes precedence over Body and is sent as-is with
	// ContentType. Raw requests are never retried since the reader
	// cannot be rewound.
	RawBody     io.Reader
	ContentType string
}

// Response is the outcome of an executed request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Do executes a request. Transport failures return an error; HTTP error
// statuses are reported through the Response so callers can inspect the
// server-supplied message.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := c.buildURL(req.Path, req.QueryParams)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}

	var bodyBytes []byte
	if req.RawBody == nil && req.Body != nil {
		bodyBytes, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	maxRetries := c.retry.MaxRetries
	if req.RawBody != nil {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.log.Debug("retrying request",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var bodyReader io.Reader
		switch {
		case req.RawBody != nil:
			bodyReader = req.RawBody
		case bodyBytes != nil:
			bodyReader = bytes.NewReader(bodyBytes)
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		c.setHeaders(httpReq, req)

		start := time.Now()
		httpResp, err := c.httpClient.Do(httpReq)
		duration := time.Since(start)

		if err != nil {
			c.observe(req, 0, duration)
			lastErr = fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
			if attempt < maxRetries && c.retry.ShouldRetry(nil, err) {
				continue
			}
			return nil, lastErr
		}

		respBody, readErr := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		c.observe(req, httpResp.StatusCode, duration)
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		resp := &Response{
			StatusCode: httpResp.StatusCode,
			Headers:    httpResp.Header,
			Body:       respBody,
			Duration:   duration,
		}

		if attempt < maxRetries && c.retry.ShouldRetry(httpResp, nil) {
			lastErr = fmt.Errorf("%s %s: status %d", req.Method, req.Path, httpResp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, queryParams map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, QueryParams: queryParams})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request with an optional JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHeader sets a default header for all subsequent requests.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

func (c *Client) buildURL(path string, queryParams map[string]string) (*url.URL, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if len(queryParams) > 0 {
		q := u.Query()
		for k, v := range queryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) setHeaders(httpReq *http.Request, req Request) {
	c.mu.RLock()
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	c.mu.RUnlock()

	switch {
	case req.RawBody != nil && req.ContentType != "":
		httpReq.Header.Set("Content-Type", req.ContentType)
	case req.Body != nil:
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func (c *Client) observe(req Request, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(req.Method, req.Path, status, duration)
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.retry.RetryDelay) * math.Pow(c.retry.Multiplier, float64(attempt-1))
	if delay > float64(c.retry.MaxDelay) {
		delay = float64(c.retry.MaxDelay)
	}
	jitter := delay * 0.25
	delay += (rand.Float64()*2 - 1) * jitter
	return time.Duration(delay)
}
