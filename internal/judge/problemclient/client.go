// Package problemclient reads hidden test cases from the problem store.
package problemclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

const (
	defaultTimeout   = 10 * time.Second
	maxProblemBytes  = 32 * 1024 * 1024
	problemPathFmt   = "/api/problems/%s"
	cookieHeaderName = "Cookie"
)

// Client fetches problem documents over HTTP, forwarding the caller's cookie.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the problem store at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("problem base url is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}, nil
}

// GetTestCases returns the ordered hidden test cases of problemID.
// A non-2xx answer is ProblemNotFound; transport failures are ServiceUnavailable.
func (c *Client) GetTestCases(ctx context.Context, problemID, cookie string) ([]model.TestCase, error) {
	problemID = strings.TrimSpace(problemID)
	if problemID == "" {
		return nil, appErr.ValidationError("problemId", "required")
	}
	endpoint := c.baseURL + fmt.Sprintf(problemPathFmt, url.PathEscape(problemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "build problem request failed")
	}
	req.Header.Set("Accept", "application/json")
	if cookie != "" {
		req.Header.Set(cookieHeaderName, cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ServiceUnavailable, "fetch problem failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, appErr.New(appErr.ProblemNotFound).
			WithDetail("problem_id", problemID).
			WithDetail("status", resp.StatusCode)
	}

	var problem model.Problem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProblemBytes)).Decode(&problem); err != nil {
		return nil, appErr.Wrapf(err, appErr.TestCaseInvalid, "decode problem failed")
	}
	if problem.HiddenTestCases == nil {
		return []model.TestCase{}, nil
	}
	return problem.HiddenTestCases, nil
}
