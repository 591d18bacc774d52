package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

const verdictPath = "/api/submission/verdict"

// VerdictSink persists or forwards one finished verdict.
type VerdictSink interface {
	Name() string
	Save(ctx context.Context, record model.VerdictRecord) error
}

// HTTPVerdictSink posts verdicts to the submission store, forwarding the caller's cookie.
type HTTPVerdictSink struct {
	endpoint string
	http     *http.Client
}

// NewHTTPVerdictSink creates a sink for the submission store at baseURL.
func NewHTTPVerdictSink(baseURL string, timeout time.Duration) (*HTTPVerdictSink, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("verdict base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVerdictSink{
		endpoint: baseURL + verdictPath,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPVerdictSink) Name() string { return "http" }

// Save posts {problemId, verdict, code, language}. The response body is ignored.
func (s *HTTPVerdictSink) Save(ctx context.Context, record model.VerdictRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal verdict failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build verdict request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if record.Cookie != "" {
		req.Header.Set("Cookie", record.Cookie)
	}
	if record.TraceID != "" {
		req.Header.Set("X-Trace-Id", record.TraceID)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.ReportFailed, "post verdict failed")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appErr.Newf(appErr.ReportFailed, "submission store answered %d", resp.StatusCode)
	}
	return nil
}
