package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Authentication errors
// 12000-12999: Problem collaborator errors
// 13000-13999: Execution & Judge errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheSetFailed ErrorCode = 10202

	// Storage & messaging errors (10400-10499)
	StorageError ErrorCode = 10400
	QueueError   ErrorCode = 10401

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Authentication Errors (11000-11999) ==========

	TokenMissing ErrorCode = 11000
	TokenExpired ErrorCode = 11003
	TokenInvalid ErrorCode = 11004

	// ========== Problem Errors (12000-12999) ==========

	ProblemNotFound    ErrorCode = 12000
	ProblemFetchFailed ErrorCode = 12001
	TestCaseInvalid    ErrorCode = 12102

	// ========== Execution & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	CodeRequired         ErrorCode = 13001
	LanguageNotSupported ErrorCode = 13003

	// Judge (13100-13199)
	JudgeSystemError  ErrorCode = 13101
	CompilationError  ErrorCode = 13102
	RuntimeError      ErrorCode = 13103
	TimeLimitExceeded ErrorCode = 13104
	StagingFailed     ErrorCode = 13110
	ReportFailed      ErrorCode = 13120
)

// errorMessages maps error codes to default messages
var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized",
	TooManyRequests:     "Too many requests",
	ServiceUnavailable:  "Service unavailable",
	Timeout:             "Request timeout",

	CacheError:     "Cache error",
	CacheSetFailed: "Failed to set cache",

	StorageError: "Object storage error",
	QueueError:   "Message queue error",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Missing required fields",

	TokenMissing: "Unauthorized",
	TokenExpired: "Token expired",
	TokenInvalid: "Invalid token",

	ProblemNotFound:    "Problem not found",
	ProblemFetchFailed: "Failed to fetch problem",
	TestCaseInvalid:    "Invalid test case format",

	CodeRequired:         "Code required",
	LanguageNotSupported: "Unsupported language",

	JudgeSystemError:  "Judge system error",
	CompilationError:  "Compile Error",
	RuntimeError:      "Runtime Error",
	TimeLimitExceeded: "Time Limit Exceeded",
	StagingFailed:     "Failed to stage job",
	ReportFailed:      "Failed to report verdict",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c >= 11000 && c < 12000: // Authentication errors
		return 401
	case c == Unauthorized:
		return 401
	case c == NotFound, c == ProblemNotFound:
		return 404
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == Timeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == CodeRequired:
		return 400
	default:
		return 500
	}
}
