// Package controller exposes the judge over HTTP.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// HealthMessage is the body of GET /.
const HealthMessage = "compiler service running"

// Judge is the part of the service used by the controller.
type Judge interface {
	Run(ctx context.Context, req service.RunRequest) (string, error)
	Submit(ctx context.Context, req service.SubmitRequest) (result.Verdict, error)
}

// JudgeController handles run and submit requests.
type JudgeController struct {
	judge Judge
}

// NewJudgeController creates a new controller.
func NewJudgeController(judge Judge) *JudgeController {
	return &JudgeController{judge: judge}
}

// RunRequest is the body of POST /run.
type RunRequest struct {
	Code     string `json:"code"`
	Input    string `json:"input"`
	Language string `json:"language"`
}

// RunResponse carries raw stdout or a formatted failure.
type RunResponse struct {
	Output string `json:"output"`
}

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Code      string     `json:"code"`
	Language  string     `json:"language"`
	ProblemID FlexibleID `json:"problemId"`
}

// SubmitResponse is the verdict shape. Case fields are only set on wrong answers.
type SubmitResponse struct {
	Verdict        string                 `json:"verdict"`
	TestCaseNumber int                    `json:"testCaseNumber,omitempty"`
	FailedTestCase *result.FailedTestCase `json:"failedTestCase,omitempty"`
}

// Health answers the liveness probe.
func (h *JudgeController) Health(c *gin.Context) {
	response.Text(c, HealthMessage)
}

// Run executes code once against the given stdin.
func (h *JudgeController) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErr.Wrapf(err, appErr.InvalidParams, "Invalid request body"))
		return
	}
	if req.Code == "" {
		response.Error(c, appErr.New(appErr.CodeRequired))
		return
	}
	output, err := h.judge.Run(c.Request.Context(), service.RunRequest{
		Code:     req.Code,
		Input:    req.Input,
		Language: req.Language,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, RunResponse{Output: output})
}

// Submit judges code against the hidden cases of a problem.
func (h *JudgeController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErr.Wrapf(err, appErr.InvalidParams, "Invalid request body"))
		return
	}
	if req.Code == "" || req.Language == "" || req.ProblemID == "" {
		response.Error(c, appErr.New(appErr.RequiredFieldEmpty))
		return
	}
	verdict, err := h.judge.Submit(c.Request.Context(), service.SubmitRequest{
		Code:      req.Code,
		Language:  req.Language,
		ProblemID: string(req.ProblemID),
		Cookie:    c.GetHeader("Cookie"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SubmitResponse{
		Verdict:        verdict.Display(),
		TestCaseNumber: verdict.TestCaseNumber,
		FailedTestCase: verdict.FailedTestCase,
	})
}

// FlexibleID accepts a JSON string or number.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}
