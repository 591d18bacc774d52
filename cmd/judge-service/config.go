package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/http/middleware"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8000"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 5 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultBackendURL      = "http://localhost:5000"
	defaultClientOrigin    = "http://localhost:5173"
	defaultMountPrefix     = "/compiler"
	defaultVerdictTopic    = "judge.verdict"
	defaultArchiveBucket   = "submissions"
	defaultReportTimeout   = 15 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	MountPrefix  string        `yaml:"mountPrefix"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// WorkspaceConfig locates scratch files.
type WorkspaceConfig struct {
	// Root defaults to the process working directory.
	Root string `yaml:"root"`
}

// JudgeConfig bounds concurrent executions.
type JudgeConfig struct {
	MaxConcurrentJobs int           `yaml:"maxConcurrentJobs"`
	SlotWait          time.Duration `yaml:"slotWait"`
	OutputBytes       int64         `yaml:"outputBytes"`
}

// ProblemConfig points at the problem store.
type ProblemConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ReporterConfig points at the submission store.
type ReporterConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisSection enables the optional Redis client.
type RedisSection struct {
	Enabled           bool `yaml:"enabled"`
	cache.RedisConfig `yaml:",inline"`
}

// KafkaSection enables the optional verdict event producer.
type KafkaSection struct {
	Enabled        bool   `yaml:"enabled"`
	Topic          string `yaml:"topic"`
	mq.KafkaConfig `yaml:",inline"`
}

// MinIOSection enables the optional source archive.
type MinIOSection struct {
	Enabled             bool `yaml:"enabled"`
	storage.MinIOConfig `yaml:",inline"`
}

// AppConfig holds compiler service config.
type AppConfig struct {
	Server    ServerConfig               `yaml:"server"`
	Logger    logger.Config              `yaml:"logger"`
	Workspace WorkspaceConfig            `yaml:"workspace"`
	Judge     JudgeConfig                `yaml:"judge"`
	Languages []profile.LanguageSpec     `yaml:"languages"`
	Problem   ProblemConfig              `yaml:"problem"`
	Reporter  ReporterConfig             `yaml:"reporter"`
	Redis     RedisSection               `yaml:"redis"`
	Kafka     KafkaSection               `yaml:"kafka"`
	MinIO     MinIOSection               `yaml:"minio"`
	CORS      middleware.CORSConfig      `yaml:"cors"`
	Auth      middleware.AuthConfig      `yaml:"auth"`
	RateLimit middleware.RateLimitConfig `yaml:"rateLimit"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads path (optional when missing), applies .env and
// environment overrides, then fills defaults.
func loadAppConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}

	var cfg AppConfig
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	applyEnv(&cfg, os.Getenv)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays the variables the service has always honored.
func applyEnv(cfg *AppConfig, getenv func(string) string) {
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}
	if base := strings.TrimSpace(getenv("MAIN_BACKEND_API_URL")); base != "" {
		cfg.Problem.BaseURL = base
		cfg.Reporter.BaseURL = base
	}
	if origin := strings.TrimSpace(getenv("CLIENT_ORIGIN")); origin != "" {
		cfg.CORS.Enabled = true
		cfg.CORS.AllowedOrigins = []string{origin}
	}
	if secret := getenv("SECRET_KEY"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if root := strings.TrimSpace(getenv("SCRATCH_ROOT")); root != "" {
		cfg.Workspace.Root = root
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.MountPrefix == "" {
		cfg.Server.MountPrefix = defaultMountPrefix
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Judge.OutputBytes <= 0 {
		cfg.Judge.OutputBytes = engine.DefaultOutputBytes
	}
	if cfg.Problem.BaseURL == "" {
		cfg.Problem.BaseURL = defaultBackendURL
	}
	if cfg.Reporter.BaseURL == "" {
		cfg.Reporter.BaseURL = cfg.Problem.BaseURL
	}
	if cfg.Reporter.Timeout == 0 {
		cfg.Reporter.Timeout = defaultReportTimeout
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.Enabled = true
		cfg.CORS.AllowedOrigins = []string{defaultClientOrigin}
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Content-Type", "X-Trace-Id", "X-Request-Id"}
	}
	cfg.CORS.AllowCredentials = true
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = defaultVerdictTopic
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = defaultArchiveBucket
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Auth.Enabled && cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required when auth is enabled")
	}
	if cfg.RateLimit.Enabled && !cfg.Redis.Enabled {
		return fmt.Errorf("rate limit requires redis")
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	return nil
}
