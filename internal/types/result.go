package types

import (
	"sync"
	"time"
)

// OutcomeKind enumerates the terminal states a stage can reach.
type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeFailure  OutcomeKind = "failure"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeCanceled OutcomeKind = "canceled"
)

// Outcome is the explicit result of a job, cell, or step. Failure and
// Skipped always carry a reason so gating decisions stay auditable.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

// Success returns a successful outcome.
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// Failure returns a failed outcome with the given reason.
func Failure(reason string) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}

// Skipped returns a skipped outcome with the given reason.
func Skipped(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

// Canceled returns a canceled outcome with the given reason.
func Canceled(reason string) Outcome {
	return Outcome{Kind: OutcomeCanceled, Reason: reason}
}

// Succeeded reports whether the outcome is a success.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// Failed reports whether the outcome is a failure or cancellation.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeFailure || o.Kind == OutcomeCanceled
}

// String returns the outcome kind, with the reason when present.
func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Kind)
	}
	return string(o.Kind) + ": " + o.Reason
}

// StepResult records one executed command within a job or cell.
type StepResult struct {
	Name     string        `json:"name"`
	Outcome  Outcome       `json:"outcome"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CellResult records one matrix cell execution.
type CellResult struct {
	Cell     MatrixCell   `json:"cell"`
	Outcome  Outcome      `json:"outcome"`
	Steps    []StepResult `json:"steps,omitempty"`
	Coverage *float64     `json:"coverage,omitempty"`
}

// JobResult is the terminal state of one job in a run. Matrix jobs carry
// one CellResult per cell; the job fails iff any cell failed.
type JobResult struct {
	Job        string       `json:"job"`
	Stage      string       `json:"stage"`
	Outcome    Outcome      `json:"outcome"`
	Cells      []CellResult `json:"cells,omitempty"`
	Steps      []StepResult `json:"steps,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// RunStatus enumerates the lifecycle of a pipeline run.
type RunStatus string

const (
	RunPending  RunStatus = "pending"
	RunRunning  RunStatus = "running"
	RunSuccess  RunStatus = "success"
	RunFailure  RunStatus = "failure"
	RunCanceled RunStatus = "canceled"
)

// Run is a single execution of a workflow against a trigger event. The
// engine mutates a run while API readers observe it, so Jobs and Status
// go through the synchronized accessors.
type Run struct {
	mu sync.RWMutex

	ID         string                `json:"id"`
	Workflow   string                `json:"workflow"`
	Event      TriggerEvent          `json:"event"`
	Status     RunStatus             `json:"status"`
	Jobs       map[string]*JobResult `json:"jobs"`
	CreatedAt  time.Time             `json:"created_at"`
	FinishedAt time.Time             `json:"finished_at,omitempty"`
}

// SetJob records a job's terminal result.
func (r *Run) SetJob(name string, result *JobResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Jobs[name] = result
}

// SetStatus transitions the run's status.
func (r *Run) SetStatus(status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	if status == RunSuccess || status == RunFailure || status == RunCanceled {
		r.FinishedAt = time.Now()
	}
}

// Snapshot returns a consistent copy safe to serialize while the run is
// executing.
func (r *Run) Snapshot() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make(map[string]*JobResult, len(r.Jobs))
	for name, jr := range r.Jobs {
		jobs[name] = jr
	}
	return &Run{
		ID:         r.ID,
		Workflow:   r.Workflow,
		Event:      r.Event,
		Status:     r.Status,
		Jobs:       jobs,
		CreatedAt:  r.CreatedAt,
		FinishedAt: r.FinishedAt,
	}
}

// Results returns the collected job outcomes keyed by job name. This is
// the value gating predicates are evaluated over.
func (r *Run) Results() map[string]Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Outcome, len(r.Jobs))
	for name, jr := range r.Jobs {
		out[name] = jr.Outcome
	}
	return out
}
