package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codejudge/pkg/errors"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code   errors.ErrorCode
		status int
	}{
		{code: errors.CodeRequired, status: 400},
		{code: errors.RequiredFieldEmpty, status: 400},
		{code: errors.InvalidParams, status: 400},
		{code: errors.TokenMissing, status: 401},
		{code: errors.TokenExpired, status: 401},
		{code: errors.ProblemNotFound, status: 404},
		{code: errors.TooManyRequests, status: 429},
		{code: errors.ServiceUnavailable, status: 503},
		{code: errors.JudgeSystemError, status: 500},
		{code: errors.StagingFailed, status: 500},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.status {
			t.Fatalf("%d (%s): got %d, want %d", tc.code, tc.code.Message(), got, tc.status)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.Wrapf(cause, errors.ProblemNotFound, "Problem not found")

	if err.Error() != "Problem not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("cause must stay reachable")
	}
	wrapped := fmt.Errorf("submit: %w", err)
	if errors.GetCode(wrapped) != errors.ProblemNotFound || !errors.Is(wrapped, errors.ProblemNotFound) {
		t.Fatalf("code must survive fmt wrapping")
	}
	if errors.Wrapf(nil, errors.InternalServerError, "x") != nil {
		t.Fatalf("wrapping nil must yield nil")
	}
}

func TestGetCodeForeignError(t *testing.T) {
	if errors.GetCode(nil) != errors.Success {
		t.Fatalf("nil error must map to Success")
	}
	if errors.GetCode(stderrors.New("boom")) != errors.InternalServerError {
		t.Fatalf("foreign errors must map to InternalServerError")
	}
	if got := errors.GetError(stderrors.New("boom")); got.Code != errors.InternalServerError || got.Error() != "boom" {
		t.Fatalf("unexpected wrapped error %+v", got)
	}
}

func TestDefaultMessages(t *testing.T) {
	cases := map[errors.ErrorCode]string{
		errors.CodeRequired:       "Code required",
		errors.RequiredFieldEmpty: "Missing required fields",
		errors.ProblemNotFound:    "Problem not found",
		errors.TokenMissing:       "Unauthorized",
	}
	for code, want := range cases {
		if got := errors.New(code).Error(); got != want {
			t.Fatalf("%d: got %q, want %q", code, got, want)
		}
	}
	if errors.ErrorCode(99999).Message() != "Unknown error" {
		t.Fatalf("unknown code must have a fallback message")
	}
}
