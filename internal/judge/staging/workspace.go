// Package staging writes submissions and stdin payloads to the scratch area and removes them again.
package staging

import (
	"os"
	"path/filepath"

	appErr "codejudge/pkg/errors"
)

// Workspace is the scratch area shared by all jobs of one process.
// Paths inside it are namespaced by per-job uuids, so no locking is needed.
type Workspace struct {
	Root string
}

// NewWorkspace resolves root to an absolute path. An empty root means the process cwd.
func NewWorkspace(root string) (Workspace, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Workspace{}, appErr.Wrapf(err, appErr.StagingFailed, "resolve working directory failed")
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Workspace{}, appErr.Wrapf(err, appErr.StagingFailed, "resolve scratch root failed")
	}
	return Workspace{Root: abs}, nil
}

// CodesDir holds staged sources and per-job working directories.
func (w Workspace) CodesDir() string {
	return filepath.Join(w.Root, "tmp", "codes")
}

// InputsDir holds staged stdin payloads.
func (w Workspace) InputsDir() string {
	return filepath.Join(w.Root, "tmp", "inputs")
}

// OutputsDir holds compiled binaries.
func (w Workspace) OutputsDir() string {
	return filepath.Join(w.Root, "tmp", "outputs")
}

// Ensure creates the scratch directories.
func (w Workspace) Ensure() error {
	for _, dir := range []string{w.CodesDir(), w.InputsDir(), w.OutputsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return appErr.Wrapf(err, appErr.StagingFailed, "create scratch dir %s failed", dir)
		}
	}
	return nil
}
