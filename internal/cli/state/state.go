// Package state persists what the CLI remembers between sessions.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SessionState is the cookie forwarded with every request plus the last base URL chosen with "set base".
type SessionState struct {
	Cookie    string    `json:"cookie,omitempty"`
	BaseURL   string    `json:"base_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load returns the zero state when path does not exist.
func Load(path string) (SessionState, error) {
	var st SessionState
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return st, nil
	case err != nil:
		return st, fmt.Errorf("read session state failed: %w", err)
	case len(data) == 0:
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse session state failed: %w", err)
	}
	return st, nil
}

// Save replaces path atomically. The file holds a session cookie, so it is 0600.
func Save(path string, st SessionState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state failed: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create session state failed: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session state failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session state failed: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace session state failed: %w", err)
	}
	return nil
}

// Clear removes path; a missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session state failed: %w", err)
	}
	return nil
}
