package response

import (
	"net/http"

	"codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every failed request.
// Clients of the compiler only read "error"; code and trace id help operators.
type ErrorBody struct {
	Error   string           `json:"error"`
	Code    errors.ErrorCode `json:"code"`
	Details interface{}      `json:"details,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success writes data as the whole response body
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Text writes a plain text body
func Text(c *gin.Context, body string) {
	c.String(http.StatusOK, body)
}

// Error sends an error response derived from err
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)
	status := customErr.Code.HTTPStatus()

	fields := []zap.Field{
		zap.Int("code", int(customErr.Code)),
		zap.Int("status", status),
		zap.String("message", customErr.Error()),
	}
	if customErr.Err != nil {
		fields = append(fields, zap.NamedError("cause", customErr.Err))
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request error", append(fields, zap.String("stack", customErr.Stack))...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}

	body := ErrorBody{
		Error:   customErr.Error(),
		Code:    customErr.Code,
		TraceID: getTraceID(c),
	}
	if len(customErr.Details) > 0 {
		body.Details = customErr.Details
	}
	c.JSON(status, body)
}

// ErrorWithCode sends an error response with specific error code
func ErrorWithCode(c *gin.Context, code errors.ErrorCode, message string) {
	if message == "" {
		message = code.Message()
	}
	Error(c, errors.New(code).WithMessage(message))
}

// getTraceID extracts trace ID from context
func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}

// AbortWithError aborts the request and sends error response
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// AbortWithErrorCode aborts the request with error code
func AbortWithErrorCode(c *gin.Context, code errors.ErrorCode, message string) {
	ErrorWithCode(c, code, message)
	c.Abort()
}
