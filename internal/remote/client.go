package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Retry and backoff constants.
const (
	DefaultMaxRetries = 3
	baseBackoff       = 500 * time.Millisecond
	maxBackoff        = 30 * time.Second
	backoffFactor     = 2.0
	jitterFraction    = 0.25
	defaultUserAgent  = "projectfolders/0.1"
	maxErrorBodyBytes = 1024
)

// Authorizer decorates an outgoing request with credentials.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// BasicAuth authorizes requests with HTTP basic authentication.
type BasicAuth struct {
	Username string
	Password string
}

// Authorize implements Authorizer.
func (b BasicAuth) Authorize(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)

	return nil
}

// Request describes one logical HTTP call. Body is held in memory so it can
// be replayed on retry. Accept lists the status codes that count as success;
// an empty Accept means any 2xx.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Accept []int
}

// Response is the normalized outcome of a request whose status was accepted.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	accept     []int
}

// Succeeded reports whether the status code is in the request's accepted set.
func (r *Response) Succeeded() bool {
	return accepted(r.StatusCode, r.accept)
}

// Options configures a Client.
type Options struct {
	HTTPClient        *http.Client
	Auth              Authorizer // nil sends no credentials
	Logger            *slog.Logger
	UserAgent         string
	MaxRetries        int     // negative disables retries; 0 means DefaultMaxRetries
	RequestsPerSecond float64 // 0 disables client-side rate limiting
}

// Client issues authenticated HTTP requests with bounded retry.
type Client struct {
	httpClient *http.Client
	auth       Authorizer
	logger     *slog.Logger
	userAgent  string
	maxRetries int
	limiter    *rate.Limiter

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client from opts, filling in defaults.
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		auth:       opts.Auth,
		logger:     opts.Logger,
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		sleepFunc:  timeSleep,
	}

	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	switch {
	case c.maxRetries == 0:
		c.maxRetries = DefaultMaxRetries
	case c.maxRetries < 0:
		c.maxRetries = 0
	}

	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(math.Ceil(opts.RequestsPerSecond)))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return c
}

// SetSleepFunc replaces the wait used between retries. Intended for tests in
// other packages that drive a Client against failing fake servers.
func (c *Client) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	c.sleepFunc = fn
}

// Do executes req, retrying transport failures and retryable statuses with
// exponential backoff. It returns a *StatusError when the final status is not
// accepted and a *TransportError when no response could be obtained.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var attempt int

	for {
		resp, err := c.doOnce(ctx, req)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("remote: request canceled: %w", ctx.Err())
			}

			var authErr *AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}

			if attempt < c.maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", req.Method),
					slog.String("url", req.URL),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("remote: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
		}

		if accepted(resp.StatusCode, req.Accept) {
			c.logger.Debug("request succeeded",
				slog.String("method", req.Method),
				slog.String("url", req.URL),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		if isRetryable(resp.StatusCode) && attempt < c.maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", req.Method),
				slog.String("url", req.URL),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("remote: request canceled: %w", err)
			}

			attempt++

			continue
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", req.Method),
				slog.String("url", req.URL),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Body:       truncate(resp.Body, maxErrorBodyBytes),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}

// doOnce executes a single HTTP request (no retry) and reads the whole body.
func (c *Client) doOnce(ctx context.Context, r *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("User-Agent", c.userAgent)

	if c.auth != nil {
		if err := c.auth.Authorize(req); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		accept:     r.Accept,
	}, nil
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

func accepted(code int, accept []int) bool {
	if len(accept) == 0 {
		return code >= http.StatusOK && code < http.StatusMultipleChoices
	}

	return slices.Contains(accept, code)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}

	return string(b[:n]) + "..."
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
