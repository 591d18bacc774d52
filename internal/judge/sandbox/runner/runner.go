// Package runner turns a staged job into compile and run processes and classifies the outcome.
package runner

import (
	"context"
	"fmt"
	"time"

	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
	"codejudge/internal/judge/staging"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	stageCompile = "compile"
	stageRun     = "run"

	outputLimitMessage = "Output Limit Exceeded"
)

// Runner executes staged jobs with the toolchains in a profile.Registry.
type Runner struct {
	eng         engine.Engine
	languages   *profile.Registry
	outputBytes int64
}

// NewRunner creates a runner backed by eng.
func NewRunner(eng engine.Engine, languages *profile.Registry) (*Runner, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if languages == nil {
		return nil, fmt.Errorf("language registry is required")
	}
	return &Runner{eng: eng, languages: languages, outputBytes: engine.DefaultOutputBytes}, nil
}

// WithOutputLimit overrides the per-stream capture cap. Non-positive values are ignored.
func (r *Runner) WithOutputLimit(bytes int64) *Runner {
	if bytes > 0 {
		r.outputBytes = bytes
	}
	return r
}

// Execute compiles job if its language needs it, then runs it with input as stdin.
// It returns raw stdout on success; every classified failure is a *result.ExecError.
// Other errors are judge-side faults.
func (r *Runner) Execute(ctx context.Context, job *staging.Job, input *staging.InputArtifact) (string, error) {
	langSpec, err := r.languages.Spec(job.Language)
	if err != nil {
		return "", result.UnsupportedLanguage(job.Language.String())
	}
	vars := profile.CommandVars{
		Src:     job.SourcePath,
		Bin:     job.BinaryPath,
		WorkDir: job.WorkDir,
		Entry:   job.EntryPoint,
	}

	switch job.Language {
	case profile.LanguageC, profile.LanguageCPP:
		if job.BinaryPath == "" {
			return "", result.NewExecError(result.FailureRuntime, "Missing binary path")
		}
		if err := r.compile(ctx, job, langSpec, vars, ""); err != nil {
			return "", err
		}
		return r.run(ctx, job, input, langSpec, vars)
	case profile.LanguagePython:
		return r.run(ctx, job, input, langSpec, vars)
	case profile.LanguageJava:
		if job.WorkDir == "" || job.EntryPoint == "" {
			return "", result.NewExecError(result.FailureRuntime, "Missing java execution metadata")
		}
		if err := r.compile(ctx, job, langSpec, vars, job.WorkDir); err != nil {
			return "", err
		}
		return r.run(ctx, job, input, langSpec, vars)
	default:
		return "", result.UnsupportedLanguage(job.Language.String())
	}
}

func (r *Runner) compile(ctx context.Context, job *staging.Job, langSpec profile.LanguageSpec, vars profile.CommandVars, workDir string) error {
	if !langSpec.CompileEnabled() {
		return nil
	}
	cmd, err := profile.BuildCommand(langSpec.CompileCmdTpl, vars)
	if err != nil {
		return err
	}
	runRes, err := r.eng.Run(ctx, spec.RunSpec{
		JobID:   job.ID,
		Stage:   stageCompile,
		WorkDir: workDir,
		Cmd:     cmd,
		Env:     langSpec.Env,
		Limits:  r.limits(langSpec.CompileTimeout),
	})
	if execErr := classifyCompile(runRes, err, langSpec.CompileTimeout); execErr != nil {
		logger.Info(ctx, "compile failed",
			zap.String("job_id", job.ID),
			zap.String("language", job.Language.String()),
			zap.Int("exit_code", runRes.ExitCode),
			zap.Bool("timed_out", runRes.TimedOut),
		)
		return execErr
	}
	return nil
}

func (r *Runner) run(ctx context.Context, job *staging.Job, input *staging.InputArtifact, langSpec profile.LanguageSpec, vars profile.CommandVars) (string, error) {
	cmd, err := profile.BuildCommand(langSpec.RunCmdTpl, vars)
	if err != nil {
		return "", err
	}
	runRes, err := r.eng.Run(ctx, spec.RunSpec{
		JobID:     job.ID,
		Stage:     stageRun,
		Cmd:       cmd,
		Env:       langSpec.Env,
		StdinPath: input.Path,
		Limits:    r.limits(langSpec.RunTimeout),
	})
	if execErr := classifyRun(runRes, err); execErr != nil {
		return "", execErr
	}
	return runRes.Stdout, nil
}

func (r *Runner) limits(timeout time.Duration) spec.ResourceLimit {
	return spec.ResourceLimit{
		WallTimeMs:  timeout.Milliseconds(),
		OutputBytes: r.outputBytes,
	}
}

func classifyCompile(runRes result.RunResult, err error, timeout time.Duration) *result.ExecError {
	if err != nil {
		return result.NewExecError(result.FailureCompile, err.Error())
	}
	if runRes.TimedOut {
		msg := runRes.Stderr
		if msg == "" {
			msg = fmt.Sprintf("Compilation timed out after %s", timeout)
		}
		return result.NewExecError(result.FailureCompile, msg)
	}
	if runRes.ExitCode != 0 {
		return result.NewExecError(result.FailureCompile, diagnostic(runRes))
	}
	return nil
}

func classifyRun(runRes result.RunResult, err error) *result.ExecError {
	if err != nil {
		return result.NewExecError(result.FailureRuntime, err.Error())
	}
	if runRes.TimedOut {
		return result.NewExecError(result.FailureTimeout, result.TimeLimitMessage)
	}
	if runRes.OutputExceeded {
		return result.NewExecError(result.FailureRuntime, outputLimitMessage)
	}
	if runRes.ExitCode != 0 {
		return result.NewExecError(result.FailureRuntime, diagnostic(runRes))
	}
	return nil
}

// diagnostic prefers the process stderr and falls back to the wait error text.
func diagnostic(runRes result.RunResult) string {
	if runRes.Stderr != "" {
		return runRes.Stderr
	}
	if runRes.Err != "" {
		return runRes.Err
	}
	return fmt.Sprintf("exit status %d", runRes.ExitCode)
}
