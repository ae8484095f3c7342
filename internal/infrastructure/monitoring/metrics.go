package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/conveyorci/conveyor/internal/types"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	RunsActive  prometheus.Gauge

	// Job metrics
	JobsTotal   *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// Release metrics
	ReleasesTotal *prometheus.CounterVec

	// Coverage metrics
	Coverage prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats endpoint.
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	TotalRuns     int64   `json:"total_runs"`
	ActiveRuns    int64   `json:"active_runs"`
	TotalDuration float64 `json:"-"`
	RequestCount  int64   `json:"-"`
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conveyor_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conveyor_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conveyor_runs_total",
				Help: "Total number of pipeline runs by terminal status",
			},
			[]string{"status"},
		),
		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conveyor_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"status"},
		),
		RunsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "conveyor_runs_active",
				Help: "Number of runs currently executing",
			},
		),

		JobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conveyor_jobs_total",
				Help: "Total number of executed jobs by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conveyor_job_duration_seconds",
				Help:    "Job duration in seconds",
				Buckets: []float64{.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),

		ReleasesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conveyor_releases_total",
				Help: "Total number of release attempts by result",
			},
			[]string{"result"},
		),

		Coverage: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "conveyor_coverage_percent",
				Help:    "Observed test coverage percentages",
				Buckets: []float64{10, 25, 50, 60, 70, 80, 85, 90, 95, 100},
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "conveyor_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "conveyor_uptime_seconds",
				Help: "Orchestrator uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RunStarted records the start of a run.
func (m *Metrics) RunStarted() {
	m.RunsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveRuns++
	m.mu.Unlock()
}

// RunFinished records a run reaching a terminal status.
func (m *Metrics) RunFinished(status types.RunStatus, duration time.Duration) {
	m.RunsActive.Dec()
	m.RunsTotal.WithLabelValues(string(status)).Inc()
	m.RunDuration.WithLabelValues(string(status)).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRuns++
	m.snapshot.ActiveRuns--
	m.mu.Unlock()
}

// JobFinished records one finished job.
func (m *Metrics) JobFinished(stage string, outcome types.OutcomeKind, duration time.Duration) {
	m.JobsTotal.WithLabelValues(stage, string(outcome)).Inc()
	m.JobDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ReleaseAttempted records a release attempt result: "published",
// "noop", or "failed".
func (m *Metrics) ReleaseAttempted(result string) {
	m.ReleasesTotal.WithLabelValues(result).Inc()
}

// CoverageObserved records one coverage percentage.
func (m *Metrics) CoverageObserved(percent float64) {
	m.Coverage.Observe(percent)
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// GetSnapshot returns the current metric snapshot.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
