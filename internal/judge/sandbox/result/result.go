// Package result defines execution results, failure classification and verdicts.
package result

import (
	"errors"
	"fmt"
)

// RunResult captures raw process execution data.
type RunResult struct {
	ExitCode   int
	WallTimeMs int64
	Stdout     string
	Stderr     string
	// Err is the wait error text for abnormal exits, e.g. "signal: segmentation fault".
	Err            string
	TimedOut       bool
	OutputExceeded bool
}

// FailureKind classifies a failed execution.
type FailureKind string

const (
	FailureCompile FailureKind = "compile"
	FailureRuntime FailureKind = "runtime"
	FailureTimeout FailureKind = "timeout"
)

// TimeLimitMessage is the fixed diagnostic for timed-out runs.
const TimeLimitMessage = "Time Limit Exceeded"

// Label is the human readable name of the failure kind.
func (k FailureKind) Label() string {
	switch k {
	case FailureCompile:
		return "Compile Error"
	case FailureTimeout:
		return "Time Limit Exceeded"
	default:
		return "Runtime Error"
	}
}

// ExecError is a classified execution failure. It carries no output.
type ExecError struct {
	Kind    FailureKind
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Format renders the failure the way callers display it.
func (e *ExecError) Format() string {
	return fmt.Sprintf("❌ %s:\n%s", e.Kind.Label(), e.Message)
}

// NewExecError builds an ExecError.
func NewExecError(kind FailureKind, message string) *ExecError {
	return &ExecError{Kind: kind, Message: message}
}

// UnsupportedLanguage is the runtime failure for tags outside the known set.
func UnsupportedLanguage(tag string) *ExecError {
	return NewExecError(FailureRuntime, fmt.Sprintf("Unsupported language: %s", tag))
}

// AsExecError extracts an ExecError from err.
func AsExecError(err error) (*ExecError, bool) {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr, true
	}
	return nil, false
}
