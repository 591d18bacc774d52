package result

import "fmt"

// Status is the final classification of a submit request.
type Status string

const (
	StatusAccepted          Status = "Accepted"
	StatusWrongAnswer       Status = "Wrong Answer"
	StatusCompileError      Status = "Compile Error"
	StatusRuntimeError      Status = "Runtime Error"
	StatusTimeLimitExceeded Status = "Time Limit Exceeded"
)

// FailedTestCase describes the first hidden case whose output did not match.
type FailedTestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
}

// Verdict is produced once per submit and never modified afterwards.
type Verdict struct {
	Status Status
	// Message holds the diagnostic for compile/runtime/timeout verdicts.
	Message string
	// TestCaseNumber is 1-based and only set for wrong answers.
	TestCaseNumber int
	FailedTestCase *FailedTestCase
}

// Accepted builds the verdict for a submission that passed every case.
func Accepted() Verdict {
	return Verdict{Status: StatusAccepted}
}

// WrongAnswer builds the verdict for the first mismatching case.
func WrongAnswer(number int, input, expected, actual string) Verdict {
	return Verdict{
		Status:         StatusWrongAnswer,
		TestCaseNumber: number,
		FailedTestCase: &FailedTestCase{
			Input:          input,
			ExpectedOutput: expected,
			ActualOutput:   actual,
		},
	}
}

// FromExecError maps an engine failure to its verdict.
func FromExecError(err *ExecError) Verdict {
	status := StatusRuntimeError
	switch err.Kind {
	case FailureCompile:
		status = StatusCompileError
	case FailureTimeout:
		status = StatusTimeLimitExceeded
	}
	return Verdict{Status: status, Message: err.Message}
}

// Display is the verdict string returned to the submitter.
func (v Verdict) Display() string {
	switch v.Status {
	case StatusAccepted:
		return "✅ Accepted"
	case StatusWrongAnswer:
		return "❌ Wrong Answer"
	default:
		return fmt.Sprintf("❌ %s:\n%s", v.Status, v.Message)
	}
}

// Report is the verdict string forwarded to the submission store.
// The store checks for "accepted" case-insensitively, so the plain word is sent.
func (v Verdict) Report() string {
	if v.Status == StatusAccepted {
		return string(StatusAccepted)
	}
	return v.Display()
}

// IsAccepted reports whether every case passed.
func (v Verdict) IsAccepted() bool {
	return v.Status == StatusAccepted
}
