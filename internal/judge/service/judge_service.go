// Package service runs and judges submissions end to end.
package service

import (
	"context"
	"fmt"
	"time"

	"codejudge/internal/judge/checker"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/staging"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// JobStager materializes sources and stdin on disk.
type JobStager interface {
	StageJob(ctx context.Context, lang profile.Language, source string) (*staging.Job, error)
	StageInput(ctx context.Context, stdin string) (*staging.InputArtifact, error)
}

// Executor compiles and runs one staged job against one input.
type Executor interface {
	Execute(ctx context.Context, job *staging.Job, input *staging.InputArtifact) (string, error)
}

// ProblemSource returns the hidden test cases of a problem.
type ProblemSource interface {
	GetTestCases(ctx context.Context, problemID, cookie string) ([]model.TestCase, error)
}

// VerdictReporter forwards a final verdict without blocking the caller.
type VerdictReporter interface {
	Report(ctx context.Context, record model.VerdictRecord)
}

// RunRequest is a single execution against caller-supplied stdin.
type RunRequest struct {
	Code     string
	Input    string
	Language string
}

// SubmitRequest is a judged execution against a problem's hidden cases.
type SubmitRequest struct {
	Code      string
	Language  string
	ProblemID string
	// Cookie is forwarded verbatim to the problem and submission stores.
	Cookie string
}

// Service handles run and submit requests.
type Service struct {
	stager   JobStager
	executor Executor
	problems ProblemSource
	reporter VerdictReporter
	slots    *slots
}

// Config holds service dependencies and settings.
type Config struct {
	Stager   JobStager
	Executor Executor
	Problems ProblemSource
	Reporter VerdictReporter
	// MaxConcurrentJobs bounds in-flight requests; zero means unbounded.
	MaxConcurrentJobs int
	SlotWait          time.Duration
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Stager == nil {
		return nil, fmt.Errorf("stager is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem source is required")
	}
	if cfg.Reporter == nil {
		return nil, fmt.Errorf("verdict reporter is required")
	}
	return &Service{
		stager:   cfg.Stager,
		executor: cfg.Executor,
		problems: cfg.Problems,
		reporter: cfg.Reporter,
		slots:    newSlots(cfg.MaxConcurrentJobs, cfg.SlotWait),
	}, nil
}

// Run executes code once and returns either raw stdout or a formatted failure.
// Only judge-side faults are returned as errors.
func (s *Service) Run(ctx context.Context, req RunRequest) (string, error) {
	if req.Code == "" {
		return "", appErr.New(appErr.CodeRequired)
	}
	lang, err := profile.ParseLanguage(req.Language)
	if err != nil {
		return result.UnsupportedLanguage(req.Language).Format(), nil
	}
	if err := s.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer s.slots.release()

	// Only the wall-clock limits end a child; a dropped client does not.
	output, err := s.executeOnce(context.WithoutCancel(ctx), lang, req.Code, req.Input)
	if err != nil {
		if execErr, ok := result.AsExecError(err); ok {
			return execErr.Format(), nil
		}
		logger.Error(ctx, "run failed", zap.String("language", lang.String()), zap.Error(err))
		return "", err
	}
	return output, nil
}

// Submit judges code against every hidden case in order and stops at the first failure.
// The verdict is reported exactly once after it is final.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (result.Verdict, error) {
	if req.Code == "" || req.Language == "" || req.ProblemID == "" {
		return result.Verdict{}, appErr.New(appErr.RequiredFieldEmpty)
	}
	ctx = context.WithValue(ctx, contextkey.ProblemID, req.ProblemID)
	cases, err := s.problems.GetTestCases(ctx, req.ProblemID, req.Cookie)
	if err != nil {
		logger.Warn(ctx, "fetch problem failed", zap.Error(err))
		return result.Verdict{}, appErr.Wrapf(err, appErr.ProblemNotFound, "Problem not found")
	}
	if err := s.slots.acquire(ctx); err != nil {
		return result.Verdict{}, err
	}
	defer s.slots.release()

	var verdict result.Verdict
	// The submission store receives the tag exactly as the client sent it.
	languageTag := req.Language
	lang, err := profile.ParseLanguage(req.Language)
	if err != nil {
		verdict = result.FromExecError(result.UnsupportedLanguage(req.Language))
	} else {
		verdict, err = s.judge(context.WithoutCancel(ctx), lang, req.Code, cases)
		if err != nil {
			return result.Verdict{}, err
		}
	}

	s.reporter.Report(ctx, model.VerdictRecord{
		ProblemID: req.ProblemID,
		Verdict:   verdict.Report(),
		Code:      req.Code,
		Language:  languageTag,
		Accepted:  verdict.IsAccepted(),
		Cookie:    req.Cookie,
		TraceID:   traceIDFrom(ctx),
	})

	logger.Info(ctx, "submission judged",
		zap.String("language", languageTag),
		zap.String("status", string(verdict.Status)),
		zap.Int("cases", len(cases)),
		zap.Int("failed_case", verdict.TestCaseNumber),
	)
	return verdict, nil
}

func (s *Service) judge(ctx context.Context, lang profile.Language, code string, cases []model.TestCase) (result.Verdict, error) {
	for i, tc := range cases {
		output, err := s.executeOnce(ctx, lang, code, tc.Input)
		if err != nil {
			if execErr, ok := result.AsExecError(err); ok {
				return result.FromExecError(execErr), nil
			}
			logger.Error(ctx, "judge case failed",
				zap.Int("case", i+1),
				zap.Error(err),
			)
			return result.Verdict{}, err
		}
		if !checker.Equal(output, tc.Output) {
			return result.WrongAnswer(i+1, tc.Input, tc.Output, output), nil
		}
	}
	return result.Accepted(), nil
}

// executeOnce stages a fresh job and input, executes, and releases both on every path.
func (s *Service) executeOnce(ctx context.Context, lang profile.Language, code, stdin string) (string, error) {
	job, err := s.stager.StageJob(ctx, lang, code)
	if err != nil {
		return "", err
	}
	defer job.Release()

	input, err := s.stager.StageInput(ctx, stdin)
	if err != nil {
		return "", err
	}
	defer input.Release()

	return s.executor.Execute(ctx, job, input)
}

func traceIDFrom(ctx context.Context) string {
	if traceID, ok := ctx.Value(contextkey.TraceID).(string); ok {
		return traceID
	}
	return ""
}
