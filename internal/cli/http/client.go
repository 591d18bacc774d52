// Package httpclient talks to the compiler service on behalf of the CLI.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	userAgent     = "codejudge-cli"
	traceIDHeader = "X-Trace-Id"
	// maxResponseBytes bounds what a single response may print.
	maxResponseBytes = 8 << 20
)

// ResponseInfo is one decoded HTTP exchange.
type ResponseInfo struct {
	StatusCode int
	TraceID    string
	Body       []byte
	Duration   time.Duration
}

// Client sends JSON requests to a base URL that may include a mount prefix.
type Client struct {
	baseURL string
	http    *http.Client
	cookie  func() string
}

// New creates a client. cookie is consulted on every request and may be nil.
func New(baseURL string, timeout time.Duration, cookie func() string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cookie:  cookie,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Timeout() time.Duration { return c.http.Timeout }

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// SetTimeout ignores non-positive values.
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.http.Timeout = timeout
	}
}

// Do sends body to path and reads the whole answer. Non-2xx answers are not errors.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return info, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.cookie != nil {
		if cookie := c.cookie(); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.TraceID = resp.Header.Get(traceIDHeader)
	info.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	info.Duration = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("read response body failed: %w", err)
	}
	return info, nil
}
