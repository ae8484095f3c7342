package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Coverage  CoverageConfig
	Index     IndexConfig
	Git       GitConfig
	Engine    EngineConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// AuthConfig holds API authentication configuration. TokenHash is a
// bcrypt hash of the trigger token; empty disables authentication.
type AuthConfig struct {
	TokenHash string `envconfig:"API_TOKEN_HASH" default:""`
}

// CoverageConfig holds the coverage service client configuration.
type CoverageConfig struct {
	URL   string `envconfig:"COVERAGE_URL" default:""`
	Token string `envconfig:"COVERAGE_TOKEN" default:""`
}

// IndexConfig holds the package index client configuration.
type IndexConfig struct {
	URL        string `envconfig:"INDEX_URL" default:""`
	Token      string `envconfig:"INDEX_TOKEN" default:""`
	Repository string `envconfig:"INDEX_REPOSITORY" default:"pypi"`
}

// GitConfig holds repository configuration used by the release stage.
type GitConfig struct {
	Workspace  string `envconfig:"GIT_WORKSPACE" default:"."`
	MainBranch string `envconfig:"GIT_MAIN_BRANCH" default:"main"`
}

// EngineConfig holds scheduler configuration.
type EngineConfig struct {
	MaxParallel  int    `envconfig:"ENGINE_MAX_PARALLEL" default:"4"`
	Shell        string `envconfig:"ENGINE_SHELL" default:"/bin/sh"`
	WorkflowsDir string `envconfig:"ENGINE_WORKFLOWS_DIR" default:"workflows"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Index: IndexConfig{
			Repository: "pypi",
		},
		Git: GitConfig{
			Workspace:  ".",
			MainBranch: "main",
		},
		Engine: EngineConfig{
			MaxParallel:  4,
			Shell:        "/bin/sh",
			WorkflowsDir: "workflows",
		},
	}
}
