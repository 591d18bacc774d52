// Package spec describes one process launch and its resource limits.
package spec

// ResourceLimit describes hard limits enforced around one process.
type ResourceLimit struct {
	// WallTimeMs kills the process group once exceeded. Zero disables the limit.
	WallTimeMs int64
	// OutputBytes caps stdout and stderr independently.
	OutputBytes int64
}

// RunSpec is everything the engine needs to start and bound one process.
type RunSpec struct {
	JobID string
	// Stage is a label used only for logging ("compile" or "run").
	Stage string
	// WorkDir is the process cwd. Empty inherits the service cwd.
	WorkDir   string
	Cmd       []string
	Env       []string
	StdinPath string
	Limits    ResourceLimit
}
