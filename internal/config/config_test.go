package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8700", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Release defaults
	assert.Equal(t, "main", cfg.Git.MainBranch)
	assert.Equal(t, "pypi", cfg.Index.Repository)
	assert.Equal(t, 4, cfg.Engine.MaxParallel)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "127.0.0.1",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_BURST":   "1000",
		"RATE_LIMIT_ENABLED": "false",
		"COVERAGE_URL":       "https://coverage.example",
		"COVERAGE_TOKEN":     "cov-token",
		"INDEX_URL":          "https://index.example/legacy",
		"INDEX_TOKEN":        "idx-token",
		"GIT_MAIN_BRANCH":    "master",
		"ENGINE_SHELL":       "/bin/bash",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "https://coverage.example", cfg.Coverage.URL)
	assert.Equal(t, "cov-token", cfg.Coverage.Token)
	assert.Equal(t, "https://index.example/legacy", cfg.Index.URL)
	assert.Equal(t, "idx-token", cfg.Index.Token)
	assert.Equal(t, "master", cfg.Git.MainBranch)
	assert.Equal(t, "/bin/bash", cfg.Engine.Shell)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	_, err := Load()
	require.Error(t, err)

	_ = os.Unsetenv("RATE_LIMIT_RPS")
}
