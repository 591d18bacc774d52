package staging

import (
	"context"
	"os"
	"path/filepath"

	"codejudge/internal/judge/sandbox/profile"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is one staged compile+run unit. It lives until Release.
type Job struct {
	ID         string
	Language   profile.Language
	Source     string
	SourcePath string
	// WorkDir and EntryPoint are only set for name-matched languages.
	WorkDir    string
	EntryPoint string
	// BinaryPath is only set for languages compiled to a native binary.
	BinaryPath string
}

// Release removes every artifact the job may have produced. Errors are ignored
// and calling it more than once is safe.
func (j *Job) Release() {
	if j == nil {
		return
	}
	if j.SourcePath != "" {
		_ = os.Remove(j.SourcePath)
	}
	if j.WorkDir != "" {
		_ = os.RemoveAll(j.WorkDir)
	}
	if j.BinaryPath != "" {
		_ = os.Remove(j.BinaryPath)
	}
}

// InputArtifact is one staged stdin payload with its own id.
type InputArtifact struct {
	ID   string
	Path string
}

// Release removes the input file, ignoring errors.
func (a *InputArtifact) Release() {
	if a == nil || a.Path == "" {
		return
	}
	_ = os.Remove(a.Path)
}

// Stager materializes jobs and inputs inside a Workspace.
type Stager struct {
	workspace Workspace
	detector  EntryPointDetector
	newID     func() string
}

// NewStager creates a Stager. A nil detector falls back to PatternDetector.
func NewStager(workspace Workspace, detector EntryPointDetector) *Stager {
	if detector == nil {
		detector = PatternDetector{}
	}
	return &Stager{
		workspace: workspace,
		detector:  detector,
		newID:     uuid.NewString,
	}
}

// StageJob writes source under a fresh job id.
// Name-matched languages get <codes>/<id>/<Entry>.<ext>; the rest get <codes>/<id>.<ext>.
func (s *Stager) StageJob(ctx context.Context, lang profile.Language, source string) (*Job, error) {
	ext := lang.Extension()
	if ext == "" {
		return nil, appErr.Newf(appErr.LanguageNotSupported, "Unsupported language: %s", lang)
	}
	job := &Job{
		ID:       s.newID(),
		Language: lang,
		Source:   source,
	}
	codesDir := s.workspace.CodesDir()

	if lang.NeedsEntryPoint() {
		job.EntryPoint = s.detector.Detect(source)
		job.WorkDir = filepath.Join(codesDir, job.ID)
		job.SourcePath = filepath.Join(job.WorkDir, job.EntryPoint+"."+ext)
		if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
			return nil, appErr.Wrapf(err, appErr.StagingFailed, "create job work dir failed")
		}
	} else {
		job.SourcePath = filepath.Join(codesDir, job.ID+"."+ext)
		if err := os.MkdirAll(codesDir, 0755); err != nil {
			return nil, appErr.Wrapf(err, appErr.StagingFailed, "create codes dir failed")
		}
	}

	if lang.Compiled() {
		outputsDir := s.workspace.OutputsDir()
		if err := os.MkdirAll(outputsDir, 0755); err != nil {
			job.Release()
			return nil, appErr.Wrapf(err, appErr.StagingFailed, "create outputs dir failed")
		}
		job.BinaryPath = filepath.Join(outputsDir, job.ID+".out")
	}

	if err := os.WriteFile(job.SourcePath, []byte(source), 0644); err != nil {
		job.Release()
		return nil, appErr.Wrapf(err, appErr.StagingFailed, "write source failed")
	}

	logger.Debug(ctx, "job staged",
		zap.String("job_id", job.ID),
		zap.String("language", lang.String()),
		zap.String("source_path", job.SourcePath),
	)
	return job, nil
}

// StageInput writes stdin under its own id.
func (s *Stager) StageInput(ctx context.Context, stdin string) (*InputArtifact, error) {
	inputsDir := s.workspace.InputsDir()
	if err := os.MkdirAll(inputsDir, 0755); err != nil {
		return nil, appErr.Wrapf(err, appErr.StagingFailed, "create inputs dir failed")
	}
	artifact := &InputArtifact{ID: s.newID()}
	artifact.Path = filepath.Join(inputsDir, artifact.ID+".txt")
	if err := os.WriteFile(artifact.Path, []byte(stdin), 0644); err != nil {
		artifact.Release()
		return nil, appErr.Wrapf(err, appErr.StagingFailed, "write input failed")
	}
	logger.Debug(ctx, "input staged", zap.String("input_id", artifact.ID))
	return artifact, nil
}
