// Package server provides HTTP server setup and initialization.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, metrics, auth, recovery)
//   - Stage executor registration (lint, test, docs, release)
//   - Engine and run manager initialization
//   - Workflow directory loading
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Load workflow definitions
//  4. Register stage executors
//  5. Setup HTTP routes and middleware
//  6. Start HTTP server
//  7. Graceful shutdown on signal, draining in-flight runs
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, log)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
