package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	// DefaultOutputBytes matches the 1 MiB capture buffer of the compiler service.
	DefaultOutputBytes int64 = 1024 * 1024

	// drainTimeout bounds pipe draining when a process outside the group
	// still holds a write end.
	drainTimeout = time.Second
)

// Engine executes a RunSpec as a child process group.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error)
}

// Config controls engine behavior.
type Config struct {
	// OutputBytes is used when a RunSpec carries no output limit.
	OutputBytes int64
}

type processEngine struct {
	cfg Config
}

// NewEngine creates a process engine.
func NewEngine(cfg Config) Engine {
	if cfg.OutputBytes <= 0 {
		cfg.OutputBytes = DefaultOutputBytes
	}
	return &processEngine{cfg: cfg}
}

// Run starts runSpec.Cmd without a shell and waits for it to exit or hit its wall limit.
// A returned error means the process could not be started; exit failures are reported
// through RunResult.
func (e *processEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return result.RunResult{}, err
	}

	var stdin *os.File
	if runSpec.StdinPath != "" {
		f, err := os.Open(runSpec.StdinPath)
		if err != nil {
			return result.RunResult{}, fmt.Errorf("open stdin: %w", err)
		}
		defer f.Close()
		stdin = f
	}

	outputLimit := runSpec.Limits.OutputBytes
	if outputLimit <= 0 {
		outputLimit = e.cfg.OutputBytes
	}

	cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
	cmd.Dir = runSpec.WorkDir
	if len(runSpec.Env) > 0 {
		cmd.Env = append(os.Environ(), runSpec.Env...)
	}
	if stdin != nil {
		cmd.Stdin = stdin
	}
	setProcessGroup(cmd)

	var overflow atomic.Bool
	var killOnce sync.Once
	kill := func() {
		killOnce.Do(func() { killProcessGroup(cmd) })
	}
	onOverflow := func() {
		overflow.Store(true)
		kill()
	}
	stdout := newCappedBuffer(outputLimit, onOverflow)
	stderr := newCappedBuffer(outputLimit, onOverflow)

	// The child writes into plain pipes so Wait returns as soon as the lead
	// process is reaped, independent of who else holds the write ends.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return result.RunResult{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeFiles(stdoutR, stdoutW)
		return result.RunResult{}, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	start := time.Now()
	if err := cmd.Start(); err != nil {
		closeFiles(stdoutR, stdoutW, stderrR, stderrW)
		return result.RunResult{}, fmt.Errorf("start %s: %w", runSpec.Cmd[0], err)
	}
	closeFiles(stdoutW, stderrW)

	var drain sync.WaitGroup
	drain.Add(2)
	go copyOutput(&drain, stdout, stdoutR)
	go copyOutput(&drain, stderr, stderrR)

	var (
		stateMu  sync.Mutex
		exited   bool
		timedOut bool
	)
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if wall := durationFromMs(runSpec.Limits.WallTimeMs); wall > 0 {
			timer := time.NewTimer(wall)
			defer timer.Stop()
			wallTimer = timer.C
		}
		select {
		case <-ctx.Done():
			stateMu.Lock()
			if !exited {
				kill()
			}
			stateMu.Unlock()
		case <-wallTimer:
			stateMu.Lock()
			if !exited {
				timedOut = true
				kill()
			}
			stateMu.Unlock()
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	stateMu.Lock()
	exited = true
	stateMu.Unlock()
	close(done)

	// Anything the lead forked goes down with it, then the pipes drain to EOF.
	kill()
	drainOutput(&drain, stdoutR, stderrR)

	// A lead that exited on its own was not killed by the wall timer, even if
	// the timer fired while Wait was returning.
	if timedOut && cmd.ProcessState != nil && cmd.ProcessState.Exited() {
		timedOut = false
	}

	runResult := result.RunResult{
		ExitCode:       exitCodeFromErr(waitErr, cmd.ProcessState),
		WallTimeMs:     time.Since(start).Milliseconds(),
		Stdout:         stdout.String(),
		Stderr:         stderr.String(),
		TimedOut:       timedOut,
		OutputExceeded: overflow.Load(),
	}
	if waitErr != nil {
		runResult.Err = waitErr.Error()
		if runResult.ExitCode == 0 {
			runResult.ExitCode = -1
		}
	}
	if runResult.TimedOut && runResult.ExitCode == 0 {
		runResult.ExitCode = -1
	}

	logger.Debug(ctx, "process finished",
		zap.String("job_id", runSpec.JobID),
		zap.String("stage", runSpec.Stage),
		zap.Int("exit_code", runResult.ExitCode),
		zap.Int64("wall_ms", runResult.WallTimeMs),
		zap.Bool("timed_out", runResult.TimedOut),
	)
	return runResult, nil
}

func copyOutput(wg *sync.WaitGroup, dst io.Writer, src *os.File) {
	defer wg.Done()
	_, _ = io.Copy(dst, src)
}

func drainOutput(wg *sync.WaitGroup, readers ...*os.File) {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(drainTimeout):
	}
	closeFiles(readers...)
	<-finished
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func durationFromMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if len(runSpec.Cmd) == 0 || runSpec.Cmd[0] == "" {
		return fmt.Errorf("command is required")
	}
	if runSpec.Limits.WallTimeMs < 0 {
		return fmt.Errorf("wall time limit must not be negative")
	}
	return nil
}
