package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestApplyEnv(t *testing.T) {
	var cfg AppConfig
	applyEnv(&cfg, envFrom(map[string]string{
		"PORT":                 "9100",
		"MAIN_BACKEND_API_URL": "http://backend:5000",
		"CLIENT_ORIGIN":        "https://app.example",
		"SECRET_KEY":           "s3cret",
		"SCRATCH_ROOT":         "/var/lib/judge",
	}))
	applyDefaults(&cfg)

	if cfg.Server.Addr != "0.0.0.0:9100" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Problem.BaseURL != "http://backend:5000" || cfg.Reporter.BaseURL != "http://backend:5000" {
		t.Fatalf("backend url not applied: %+v %+v", cfg.Problem, cfg.Reporter)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://app.example" || !cfg.CORS.AllowCredentials {
		t.Fatalf("unexpected cors %+v", cfg.CORS)
	}
	if cfg.Auth.Secret != "s3cret" || cfg.Workspace.Root != "/var/lib/judge" {
		t.Fatalf("unexpected auth/workspace %+v %+v", cfg.Auth, cfg.Workspace)
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg AppConfig
	applyDefaults(&cfg)

	if cfg.Server.Addr != defaultHTTPAddr || cfg.Server.MountPrefix != "/compiler" {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Problem.BaseURL != defaultBackendURL || cfg.Reporter.BaseURL != defaultBackendURL {
		t.Fatalf("unexpected backend defaults")
	}
	if cfg.CORS.AllowedOrigins[0] != defaultClientOrigin || !cfg.CORS.Enabled {
		t.Fatalf("unexpected cors defaults %+v", cfg.CORS)
	}
	if cfg.Judge.OutputBytes != 1<<20 {
		t.Fatalf("unexpected output cap %d", cfg.Judge.OutputBytes)
	}
	if cfg.Kafka.Topic != defaultVerdictTopic || cfg.MinIO.Bucket != defaultArchiveBucket {
		t.Fatalf("unexpected sink defaults")
	}
}

func TestLoadAppConfig(t *testing.T) {
	for _, key := range []string{"PORT", "MAIN_BACKEND_API_URL", "CLIENT_ORIGIN", "SECRET_KEY", "SCRATCH_ROOT"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "judge.yaml")
	data := `
server:
  addr: "127.0.0.1:8100"
  writeTimeout: 30s
judge:
  maxConcurrentJobs: 4
problem:
  baseURL: "http://problems:5000"
reporter:
  baseURL: "http://submissions:5000"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "9200")
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9200" {
		t.Fatalf("PORT must override the file, got %q", cfg.Server.Addr)
	}
	if cfg.Server.WriteTimeout != 30*time.Second || cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Fatalf("unexpected timeouts %+v", cfg.Server)
	}
	if cfg.Judge.MaxConcurrentJobs != 4 {
		t.Fatalf("unexpected judge config %+v", cfg.Judge)
	}
	if cfg.Problem.BaseURL != "http://problems:5000" || cfg.Reporter.BaseURL != "http://submissions:5000" {
		t.Fatalf("unexpected urls %+v %+v", cfg.Problem, cfg.Reporter)
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	for _, key := range []string{"PORT", "MAIN_BACKEND_API_URL", "CLIENT_ORIGIN", "SECRET_KEY", "SCRATCH_ROOT"} {
		t.Setenv(key, "")
	}
	cfg, err := loadAppConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config file must be tolerated: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(cfg *AppConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{name: "auth without secret", mutate: func(cfg *AppConfig) { cfg.Auth.Enabled = true }, wantErr: true},
		{name: "rate limit without redis", mutate: func(cfg *AppConfig) { cfg.RateLimit.Enabled = true }, wantErr: true},
		{name: "redis without addr", mutate: func(cfg *AppConfig) { cfg.Redis.Enabled = true }, wantErr: true},
		{name: "kafka without brokers", mutate: func(cfg *AppConfig) { cfg.Kafka.Enabled = true }, wantErr: true},
		{name: "rate limit with redis", mutate: func(cfg *AppConfig) {
			cfg.Redis.Enabled = true
			cfg.Redis.Addr = "localhost:6379"
			cfg.RateLimit.Enabled = true
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg AppConfig
			applyDefaults(&cfg)
			tc.mutate(&cfg)
			err := validate(&cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
