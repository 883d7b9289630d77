// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/sbir-search/pkg/types"
)

// Client wraps http.Client with the settings every adapter shares: request
// timeout, User-Agent, retry policy, and an optional outbound rate limiter.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	RetryMax  int
	limiter   *rate.Limiter
}

// NewClient builds the shared adapter client from config. A zero
// RequestsPerSecond disables the rate limiter.
func NewClient(cfg types.HTTPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 5)
	}

	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: cfg.UserAgent,
		RetryMax:  cfg.RetryMax,
		limiter:   limiter,
	}
}

// Get issues a GET request honoring the limiter, User-Agent, and retry
// policy. The caller owns the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	return DoWithRetry(ctx, c.HTTP, req, c.RetryMax)
}

// PostJSON issues a POST with a JSON body and optional extra headers, under
// the same limiter and retry policy as Get.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte, headers map[string]string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return DoWithRetry(ctx, c.HTTP, req, c.RetryMax)
}
