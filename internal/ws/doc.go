// Package ws provides WebSocket handling for live run observation.
//
// This package streams run lifecycle events to clients, enabling
// real-time dashboards without polling the run endpoints.
//
// Event Types (Server → Client):
//   - run_started: the run began executing
//   - job_started / job_finished: one job's lifecycle
//   - cell_started / cell_finished: one matrix cell's lifecycle
//   - run_finished: the run reached a terminal status
//
// A subscriber connecting to an already-finished run receives a single
// run_finished event carrying the terminal status.
//
// Example Usage:
//
//	handler := ws.NewHandler(broker, runs, metrics, log)
//	router.GET("/runs/:id/stream", handler.StreamRun)
package ws
