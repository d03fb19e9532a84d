package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/trace"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures
var ErrCircuitOpen = errors.New("circuit breaker open")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client with common configuration and utilities
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	log      logger.Logger
	failures uint32
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithBaseURL sets the base URL for all requests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.http.SetBaseURL(baseURL)
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.http.SetHeader(key, value)
	}
}

// WithLogger routes request logging to log
func WithLogger(log logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithRateLimit paces requests to at most rps per second. Zero disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCircuitBreaker opens the circuit after n consecutive failures. Zero disables it.
func WithCircuitBreaker(n uint32) ClientOption {
	return func(c *Client) {
		c.failures = n
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		http: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
		log: logger.Nop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.failures > 0 {
		threshold := client.failures
		client.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "api",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: breakerSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				client.log.Warn(context.Background(), "Circuit breaker state changed",
					"breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return client
}

// breakerSuccess reports whether err leaves the provider healthy.
// Client errors other than 429 concern a single request and do not count.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	return false
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// ParseJSON decodes the response body into v
func (r *Response) ParseJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// GET performs a GET request with query parameters
func (c *Client) GET(ctx context.Context, url string, query map[string]string) (*Response, error) {
	ctx, span := trace.StartSpan(ctx, "api.GET")
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	do := func() (*Response, error) {
		return c.do(ctx, url, query)
	}
	if c.breaker == nil {
		return do()
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return do()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, url)
	}
	if err != nil {
		return nil, err
	}
	return out.(*Response), nil
}

func (c *Client) do(ctx context.Context, url string, query map[string]string) (*Response, error) {
	c.log.Debug(ctx, "HTTP Request", "method", http.MethodGet, "url", url)

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(url)
	if err != nil {
		c.log.Warn(ctx, "HTTP request failed", "url", url, "error", err)
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	c.log.Debug(ctx, "HTTP Response",
		"url", url,
		"status", resp.StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
		"body_size", len(resp.Body()))

	if resp.StatusCode() >= 400 {
		body := string(resp.Body())
		if len(body) > 200 {
			body = body[:200]
		}
		c.log.Warn(ctx, "HTTP error response", "url", url, "status", resp.StatusCode())
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: body}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, nil
}
