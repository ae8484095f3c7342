package types

import "time"

// RunEventType enumerates run lifecycle events published to stream
// subscribers.
type RunEventType string

const (
	EventRunStarted   RunEventType = "run_started"
	EventRunFinished  RunEventType = "run_finished"
	EventJobStarted   RunEventType = "job_started"
	EventJobFinished  RunEventType = "job_finished"
	EventCellStarted  RunEventType = "cell_started"
	EventCellFinished RunEventType = "cell_finished"
)

// RunEvent is one observable transition in a run's lifecycle.
type RunEvent struct {
	Type      RunEventType `json:"type"`
	RunID     string       `json:"run_id"`
	Job       string       `json:"job,omitempty"`
	Cell      string       `json:"cell,omitempty"`
	Outcome   *Outcome     `json:"outcome,omitempty"`
	Status    RunStatus    `json:"status,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
