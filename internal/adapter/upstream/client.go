// Package upstream is the shared HTTP plumbing for external data providers:
// a circuit breaker per provider, a fixed user agent, and classification of
// failures into the domain error taxonomy.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

// maxErrorBody caps how much of a failed response body is kept for the error.
const maxErrorBody = 512

// Client performs GET requests against one provider.
type Client struct {
	provider  string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithBreaker replaces the default circuit breaker, mainly for tests.
func WithBreaker(b *gobreaker.CircuitBreaker[[]byte]) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

// NewClient creates a Client for the named provider.
func NewClient(provider string, timeout time.Duration, userAgent string, opts ...Option) *Client {
	c := &Client{
		provider:  provider,
		client:    &http.Client{Timeout: timeout},
		breaker:   NewBreaker(provider),
		userAgent: userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewBreaker trips after more than five consecutive failures and probes again
// after 30s. A "not found" answer counts as a healthy upstream.
func NewBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
	})
}

// Provider returns the provider name used in errors.
func (c *Client) Provider() string {
	return c.provider
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewProviderError(c.provider, domain.ErrMalformedResponse, http.StatusOK, err)
	}
	return nil
}

// Get fetches rawURL through the circuit breaker and returns the body of a
// 200 response. Every failure is a *domain.ProviderError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, rawURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domain.NewProviderError(c.provider, domain.ErrNetwork, 0, err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.NewProviderError(c.provider, domain.ErrInvalidInput, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		kind := domain.ErrNetwork
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			kind = domain.ErrTimeout
		}
		return nil, domain.NewProviderError(c.provider, kind, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := domain.ErrNetwork
		if resp.StatusCode == http.StatusNotFound {
			kind = domain.ErrNotFound
		}
		return nil, domain.NewProviderError(c.provider, kind, resp.StatusCode,
			errors.New(strings.TrimSpace(string(snippet))))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError(c.provider, domain.ErrNetwork, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}
