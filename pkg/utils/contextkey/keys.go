// Package contextkey names the request-scoped values the logger picks up.
package contextkey

type key string

const (
	TraceID   key = "trace_id"
	RequestID key = "request_id"
	UserID    key = "user_id"
	// ProblemID is set for the duration of a submit so sink and engine logs carry it.
	ProblemID key = "problem_id"
)
