// Package health talks to the agent's local HTTP endpoint: requests with a
// classified fixed-delay retry policy, health checks, and readiness polling.
package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
	"github.com/cenkalti/backoff"
)

// Defaults for requests and readiness polling.
const (
	DefaultRetryDelay        = time.Second
	DefaultHealthTimeout     = 3 * time.Second
	DefaultReadinessAttempts = 10
	DefaultReadinessInterval = time.Second
	maxResponseBody          = 4 << 20
)

var (
	// ErrReadinessTimeout is returned when the endpoint never became healthy.
	ErrReadinessTimeout = errors.New("service did not become ready")
	// ErrInvalidBaseURL is returned for base URLs without scheme or host.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	errNotReady = errors.New("health check failed")
)

// RequestOptions tunes a single Request call.
type RequestOptions struct {
	// Retries is the number of extra attempts for transient failures.
	Retries int
	// RetryDelay is the fixed pause between attempts (default 1s).
	RetryDelay time.Duration
	// Timeout bounds each attempt; zero means no per-attempt limit.
	Timeout time.Duration
	Header  http.Header
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client issues requests against a mutable base URL.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	http    *http.Client
	logger  ports.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger ports.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for baseURL, e.g. "http://127.0.0.1:5030".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: normalized,
		http:    &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = ports.Discard
	}
	c.logger = c.logger.With(ports.F("component", "health"))
	return c, nil
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// UpdateBaseURL points the client at a new base URL without rebuilding it.
func (c *Client) UpdateBaseURL(baseURL string) error {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = normalized
	return nil
}

// Request performs method on path, retrying transient failures per opts.
// Non-2xx responses are returned as *StatusError.
func (c *Client) Request(ctx context.Context, method, path string, body []byte, opts RequestOptions) (*Response, error) {
	target := c.BaseURL() + "/" + strings.TrimLeft(path, "/")

	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}

	var resp *Response
	attempt := 0
	operation := func() error {
		attempt++
		r, err := c.do(ctx, method, target, body, opts)
		if err == nil {
			resp = r
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if class := Classify(err); class != ClassTransient {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(retries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Debug(ctx, "retrying request",
			ports.F("method", method),
			ports.F("url", target),
			ports.F("attempt", attempt),
			ports.F("wait", wait),
			ports.Err(err))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%s %s: %w", method, target, ctxErr)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, opts RequestOptions) (*Response, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: target, Code: httpResp.StatusCode, Body: string(data)}
	}

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// CheckHealth reports whether GET path succeeds within timeout.
// A zero timeout uses DefaultHealthTimeout.
func (c *Client) CheckHealth(ctx context.Context, path string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	_, err := c.Request(ctx, http.MethodGet, path, nil, RequestOptions{Timeout: timeout})
	if err != nil {
		c.logger.Debug(ctx, "health check failed", ports.F("path", path), ports.F("class", Classify(err).String()), ports.Err(err))
		return false
	}
	return true
}

// PollUntilReady calls CheckHealth up to maxAttempts times, sleeping interval
// between attempts, and returns ErrReadinessTimeout if none succeeded.
func (c *Client) PollUntilReady(ctx context.Context, path string, maxAttempts int, interval time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultReadinessAttempts
	}
	if interval <= 0 {
		interval = DefaultReadinessInterval
	}

	attempt := 0
	check := func() error {
		attempt++
		if c.CheckHealth(ctx, path, DefaultHealthTimeout) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return errNotReady
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)),
		ctx,
	)
	notify := func(_ error, wait time.Duration) {
		c.logger.Debug(ctx, "service not ready yet",
			ports.F("path", path),
			ports.F("attempt", attempt),
			ports.F("wait", wait))
	}

	if err := backoff.RetryNotify(check, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s after %d attempts", ErrReadinessTimeout, c.BaseURL()+"/"+strings.TrimLeft(path, "/"), attempt)
	}

	c.logger.Info(ctx, "service ready", ports.F("path", path), ports.F("attempt", attempt))
	return nil
}

func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidBaseURL, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w %q: scheme and host are required", ErrInvalidBaseURL, raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}
