//go:build linux

package engine_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/sandbox/spec"
)

func requireBinaries(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

func TestEngineRun(t *testing.T) {
	requireBinaries(t, "sh", "cat", "sleep", "yes")

	cases := []struct {
		name   string
		run    func(t *testing.T) (result.RunResult, error)
		verify func(t *testing.T, res result.RunResult, err error)
	}{
		{
			name: "stdin_redirected",
			run: func(t *testing.T) (result.RunResult, error) {
				stdinPath := filepath.Join(t.TempDir(), "in.txt")
				if err := os.WriteFile(stdinPath, []byte("hello judge\n"), 0644); err != nil {
					t.Fatalf("write stdin: %v", err)
				}
				eng := engine.NewEngine(engine.Config{})
				return eng.Run(t.Context(), spec.RunSpec{
					Cmd:       []string{"cat"},
					StdinPath: stdinPath,
					Limits:    spec.ResourceLimit{WallTimeMs: 2000},
				})
			},
			verify: func(t *testing.T, res result.RunResult, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if res.ExitCode != 0 || res.TimedOut {
					t.Fatalf("unexpected result: %+v", res)
				}
				if res.Stdout != "hello judge\n" {
					t.Fatalf("expected stdin echoed, got %q", res.Stdout)
				}
			},
		},
		{
			name: "wall_timeout_kills_group",
			run: func(t *testing.T) (result.RunResult, error) {
				eng := engine.NewEngine(engine.Config{})
				return eng.Run(t.Context(), spec.RunSpec{
					Cmd:    []string{"sh", "-c", "sleep 5; echo late"},
					Limits: spec.ResourceLimit{WallTimeMs: 200},
				})
			},
			verify: func(t *testing.T, res result.RunResult, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !res.TimedOut {
					t.Fatalf("expected timeout, got %+v", res)
				}
				if res.ExitCode == 0 {
					t.Fatalf("expected non-zero exit code")
				}
				if res.WallTimeMs > 3000 {
					t.Fatalf("expected kill near the limit, took %dms", res.WallTimeMs)
				}
				if strings.Contains(res.Stdout, "late") {
					t.Fatalf("expected no output after kill")
				}
			},
		},
		{
			name: "nonzero_exit_keeps_stderr",
			run: func(t *testing.T) (result.RunResult, error) {
				eng := engine.NewEngine(engine.Config{})
				return eng.Run(t.Context(), spec.RunSpec{
					Cmd:    []string{"sh", "-c", "echo boom >&2; exit 3"},
					Limits: spec.ResourceLimit{WallTimeMs: 2000},
				})
			},
			verify: func(t *testing.T, res result.RunResult, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if res.ExitCode != 3 {
					t.Fatalf("expected exit code 3, got %d", res.ExitCode)
				}
				if res.Stderr != "boom\n" {
					t.Fatalf("expected stderr boom, got %q", res.Stderr)
				}
				if res.Err == "" {
					t.Fatalf("expected wait error text")
				}
			},
		},
		{
			name: "output_cap",
			run: func(t *testing.T) (result.RunResult, error) {
				eng := engine.NewEngine(engine.Config{})
				return eng.Run(t.Context(), spec.RunSpec{
					Cmd:    []string{"yes"},
					Limits: spec.ResourceLimit{WallTimeMs: 5000, OutputBytes: 1024},
				})
			},
			verify: func(t *testing.T, res result.RunResult, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !res.OutputExceeded {
					t.Fatalf("expected output overflow, got %+v", res)
				}
				if res.TimedOut {
					t.Fatalf("expected overflow kill before the wall limit")
				}
				if len(res.Stdout) != 1024 {
					t.Fatalf("expected 1024 captured bytes, got %d", len(res.Stdout))
				}
			},
		},
		{
			name: "work_dir",
			run: func(t *testing.T) (result.RunResult, error) {
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, "marker"), []byte("here"), 0644); err != nil {
					t.Fatalf("write marker: %v", err)
				}
				eng := engine.NewEngine(engine.Config{})
				return eng.Run(t.Context(), spec.RunSpec{
					WorkDir: dir,
					Cmd:     []string{"cat", "marker"},
					Limits:  spec.ResourceLimit{WallTimeMs: 2000},
				})
			},
			verify: func(t *testing.T, res result.RunResult, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if res.Stdout != "here" {
					t.Fatalf("expected marker content, got %q", res.Stdout)
				}
			},
		},
		{
			name: "missing_binary",
			run: func(t *testing.T) (result.RunResult, error) {
				eng := engine.NewEngine(engine.Config{})
				return eng.Run(t.Context(), spec.RunSpec{
					Cmd:    []string{filepath.Join(t.TempDir(), "does-not-exist")},
					Limits: spec.ResourceLimit{WallTimeMs: 2000},
				})
			},
			verify: func(t *testing.T, _ result.RunResult, err error) {
				if err == nil {
					t.Fatalf("expected start error")
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.run(t)
			tc.verify(t, res, err)
		})
	}
}

func TestEngineContextCancel(t *testing.T) {
	requireBinaries(t, "sleep")
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	eng := engine.NewEngine(engine.Config{})
	start := time.Now()
	res, err := eng.Run(ctx, spec.RunSpec{Cmd: []string{"sleep", "5"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("expected cancellation to stop the process")
	}
	if res.ExitCode == 0 {
		t.Fatalf("expected killed process to report failure")
	}
}

func TestEngineRejectsEmptyCommand(t *testing.T) {
	eng := engine.NewEngine(engine.Config{})
	if _, err := eng.Run(t.Context(), spec.RunSpec{}); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

// processGone reports whether pid no longer runs; a zombie awaiting its reaper counts as gone.
func processGone(pid string) bool {
	data, err := os.ReadFile(filepath.Join("/proc", pid, "stat"))
	if err != nil {
		return true
	}
	stat := string(data)
	idx := strings.LastIndex(stat, ")")
	return idx >= 0 && idx+2 < len(stat) && stat[idx+2] == 'Z'
}

func TestEngineKillsDescendantsAfterLeadExits(t *testing.T) {
	requireBinaries(t, "sh", "sleep")
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "child.pid")

	eng := engine.NewEngine(engine.Config{})
	res, err := eng.Run(t.Context(), spec.RunSpec{
		WorkDir: dir,
		Cmd:     []string{"sh", "-c", "echo hi; sleep 30 & echo $! > child.pid; exit 0"},
		Limits:  spec.ResourceLimit{WallTimeMs: 5000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 || res.Err != "" || res.TimedOut {
		t.Fatalf("expected clean exit of the lead process, got %+v", res)
	}
	if res.Stdout != "hi\n" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if res.WallTimeMs > 3000 {
		t.Fatalf("expected return right after the lead exited, took %dms", res.WallTimeMs)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read child pid: %v", err)
	}
	pid := strings.TrimSpace(string(data))
	deadline := time.Now().Add(2 * time.Second)
	for !processGone(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("forked child %s still running", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestEngineTimeoutOnlyForKilledProcesses(t *testing.T) {
	requireBinaries(t, "true")
	eng := engine.NewEngine(engine.Config{})
	for i := 0; i < 20; i++ {
		res, err := eng.Run(t.Context(), spec.RunSpec{
			Cmd:    []string{"true"},
			Limits: spec.ResourceLimit{WallTimeMs: 1},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.TimedOut && res.Err == "" {
			t.Fatalf("run %d reported a timeout for a process that exited on its own: %+v", i, res)
		}
		if !res.TimedOut && res.ExitCode != 0 {
			t.Fatalf("run %d failed without a timeout: %+v", i, res)
		}
	}
}
