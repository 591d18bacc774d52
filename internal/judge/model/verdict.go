package model

import "time"

// VerdictRecord is what the reporter forwards once per submit.
type VerdictRecord struct {
	ProblemID string `json:"problemId"`
	Verdict   string `json:"verdict"`
	Code      string `json:"code"`
	Language  string `json:"language"`

	// ID is assigned by the reporter and shared by every sink.
	ID       string    `json:"-"`
	Accepted bool      `json:"-"`
	At       time.Time `json:"-"`
	// Cookie is the caller's session cookie, forwarded to the submission store.
	Cookie string `json:"-"`
	// TraceID ties sink logs back to the originating request.
	TraceID string `json:"-"`
}

// VerdictEvent is the message published for each finished submit.
type VerdictEvent struct {
	EventID   string `json:"event_id"`
	ProblemID string `json:"problem_id"`
	Language  string `json:"language"`
	Verdict   string `json:"verdict"`
	Accepted  bool   `json:"accepted"`
	TraceID   string `json:"trace_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}
