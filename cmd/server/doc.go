// Package main is the entry point for the conveyor orchestrator.
//
// Conveyor runs declarative CI pipelines for Python packages: lint,
// a matrixed test stage with coverage collection, documentation build
// verification, and a gated semantic release.
//
// The server provides:
//   - REST API for workflow and run management
//   - WebSocket streaming of run lifecycle events
//   - Prometheus metrics
//   - Rate limiting and token authentication
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./server -port 8700 -workflows ./workflows
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, draining in-flight runs
package main
