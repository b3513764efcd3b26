package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClientConfig configures the shared outbound HTTP client.
type HTTPClientConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RateLimit is the sustained requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is how many times a failed request is reissued.
	MaxRetries int

	// RetryDelay is the wait between retries when the server does not
	// say otherwise via Retry-After.
	RetryDelay time.Duration

	// UserAgent is sent when the request carries none of its own.
	UserAgent string

	// APIKey, when set together with APIKeyHeader, is attached to every
	// request.
	APIKey string

	// APIKeyHeader is the header name the API key is sent under.
	APIKeyHeader string

	// Logger receives retry diagnostics. The zero value logs nothing.
	Logger zerolog.Logger
}

// HTTPClient wraps http.Client with rate limiting and retry handling
// for the paper-source APIs. It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
	logger      zerolog.Logger
}

// NewHTTPClient creates an HTTPClient, filling unset config fields with
// defaults suited to unauthenticated Semantic Scholar access.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-PaperGenerator/1.0"
	}

	return &HTTPClient{
		client:      &http.Client{Timeout: cfg.Timeout},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
		logger:      cfg.Logger.With().Str("component", "http_client").Logger(),
	}
}

// Do executes the request, waiting on the rate limiter before each
// attempt. Network errors, 429 and 5xx responses are retried up to
// MaxRetries times; 429 honors the Retry-After header. Any other
// response is returned to the caller as-is.
//
// Requests with a body must set GetBody for retries to be possible.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.prepareHeaders(req)

	var lastErr error
	lastStatus := 0
	delay := c.config.RetryDelay

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn().Int("attempt", attempt).Dur("delay", delay).
				Int("status", lastStatus).Str("url", req.URL.Redacted()).
				Msg("retrying request")
			if err := c.pause(req.Context(), delay); err != nil {
				return nil, err
			}
			if err := rewindBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
		}

		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			lastStatus = 0
			delay = c.config.RetryDelay
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		lastErr = nil
		lastStatus = resp.StatusCode
		delay = c.retryDelayFor(resp)
		drainBody(resp)
	}

	if lastStatus != 0 {
		return nil, fmt.Errorf("max retries exhausted after %d attempts, last status: %d",
			c.config.MaxRetries+1, lastStatus)
	}
	return nil, lastErr
}

// prepareHeaders fills in the User-Agent (unless the caller set one)
// and the API key header.
func (c *HTTPClient) prepareHeaders(req *http.Request) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}
}

// retryableStatus reports whether a response status warrants a retry:
// 429 and the 5xx range.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

// retryDelayFor picks the wait before the next attempt: the Retry-After
// header when present and parseable (seconds or HTTP date), the
// configured delay otherwise.
func (c *HTTPClient) retryDelayFor(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(t); until > 0 {
			return until
		}
	}
	return c.config.RetryDelay
}

// pause sleeps for the delay unless the context ends first.
func (c *HTTPClient) pause(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rewindBody restores the request body before a retry. Bodyless
// requests need nothing; requests with a body need GetBody.
func rewindBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("restoring request body: %w", err)
	}
	req.Body = body
	return nil
}

// drainBody reads out and closes a response body so the underlying
// connection can be reused for the retry.
func drainBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
