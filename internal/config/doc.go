// Package config provides 12-factor configuration management for the
// conveyor orchestrator.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Auth: API token verification
//   - Coverage: external coverage service endpoint and token
//   - Index: package index endpoint and publish token
//   - Git: repository location and main branch name
//   - Engine: scheduler parallelism and shell
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
