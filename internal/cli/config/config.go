// Package config loads the CLI settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL     = "http://127.0.0.1:8000"
	DefaultTimeout     = time.Minute
	DefaultStatePath   = "configs/cli_state.json"
	DefaultHistoryPath = "configs/.cli_history"

	// BaseURLEnv overrides baseURL from the file.
	BaseURLEnv = "CODEJUDGE_BASE_URL"
)

// Config holds CLI configuration. Run and submit can take several seconds per
// hidden case, so the timeout is generous by default.
type Config struct {
	BaseURL     string        `yaml:"baseURL"`
	Timeout     time.Duration `yaml:"timeout"`
	StatePath   string        `yaml:"statePath"`
	HistoryPath string        `yaml:"historyPath"`
	PrettyJSON  *bool         `yaml:"prettyJSON"`
}

// Load reads path; a missing file yields the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	if base := strings.TrimSpace(os.Getenv(BaseURLEnv)); base != "" {
		cfg.BaseURL = base
	}
	if cfg.Timeout < 0 {
		return cfg, fmt.Errorf("timeout must not be negative: %s", cfg.Timeout)
	}
	cfg.withDefaults()
	return cfg, nil
}

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.HistoryPath == "" {
		c.HistoryPath = DefaultHistoryPath
	}
	if c.PrettyJSON == nil {
		pretty := true
		c.PrettyJSON = &pretty
	}
}
