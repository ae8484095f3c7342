// Package engine schedules workflow jobs: it orders them by their
// declared needs, evaluates gates, expands matrices, and dispatches
// work to stage executors.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conveyorci/conveyor/internal/events"
	"github.com/conveyorci/conveyor/internal/logging"
	"github.com/conveyorci/conveyor/internal/secrets"
	"github.com/conveyorci/conveyor/internal/stages"
	"github.com/conveyorci/conveyor/internal/types"
	"github.com/conveyorci/conveyor/internal/workflow"
)

// Recorder receives execution metrics. A nil Recorder disables
// recording.
type Recorder interface {
	RunStarted()
	RunFinished(status types.RunStatus, duration time.Duration)
	JobFinished(stage string, outcome types.OutcomeKind, duration time.Duration)
	CoverageObserved(percent float64)
}

// Options tunes the engine.
type Options struct {
	// MaxParallel bounds concurrent cell executions across the run.
	MaxParallel int
	// Workspace is the directory jobs execute in.
	Workspace string
}

// Engine executes runs.
type Engine struct {
	registry *stages.Registry
	broker   *events.Broker
	secrets  *secrets.Store
	metrics  Recorder
	log      *logging.Logger
	opts     Options
}

// New creates an engine. metrics may be nil.
func New(registry *stages.Registry, broker *events.Broker, store *secrets.Store, metrics Recorder, log *logging.Logger, opts Options) *Engine {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &Engine{
		registry: registry,
		broker:   broker,
		secrets:  store,
		metrics:  metrics,
		log:      log,
		opts:     opts,
	}
}

// Execute runs every job of the workflow, respecting needs ordering and
// gates, and records results on the run. It returns the run's terminal
// status.
func (e *Engine) Execute(ctx context.Context, run *types.Run, wf *types.Workflow) types.RunStatus {
	started := time.Now()
	log := e.log.WithRun(run.ID)

	run.SetStatus(types.RunRunning)
	if e.metrics != nil {
		e.metrics.RunStarted()
	}
	e.broker.Publish(types.RunEvent{Type: types.EventRunStarted, RunID: run.ID, Status: types.RunRunning})
	log.Info("run started",
		zap.String("workflow", wf.Name),
		zap.String("branch", run.Event.Branch),
		zap.Int("jobs", len(wf.Jobs)))

	sem := make(chan struct{}, e.opts.MaxParallel)

	remaining := make(map[string]types.Job, len(wf.Jobs))
	for name, job := range wf.Jobs {
		remaining[name] = job
	}
	completed := make(map[string]types.Outcome, len(wf.Jobs))

	for len(remaining) > 0 {
		ready := readyJobs(remaining, completed)
		if len(ready) == 0 {
			// The validator rejects cycles, so this only happens on a
			// workflow that bypassed validation.
			for name := range remaining {
				result := &types.JobResult{
					Job:     name,
					Stage:   remaining[name].Stage,
					Outcome: types.Failure("unsatisfiable needs"),
				}
				e.finishJob(run, name, result)
				completed[name] = result.Outcome
				delete(remaining, name)
			}
			break
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, name := range ready {
			job := remaining[name]
			delete(remaining, name)

			wg.Add(1)
			go func(name string, job types.Job) {
				defer wg.Done()
				result := e.executeJob(ctx, sem, run, name, job, snapshot(&mu, completed))
				mu.Lock()
				completed[name] = result.Outcome
				mu.Unlock()
				e.finishJob(run, name, result)
			}(name, job)
		}
		wg.Wait()
	}

	status := runStatus(ctx, run)
	run.SetStatus(status)
	e.broker.Publish(types.RunEvent{Type: types.EventRunFinished, RunID: run.ID, Status: status})
	e.broker.CloseRun(run.ID)

	if e.metrics != nil {
		e.metrics.RunFinished(status, time.Since(started))
	}
	log.Info("run finished",
		zap.String("status", string(status)),
		zap.Duration("duration", time.Since(started)))
	return status
}

// readyJobs returns the jobs whose needs have all completed, in a
// deterministic order.
func readyJobs(remaining map[string]types.Job, completed map[string]types.Outcome) []string {
	var ready []string
	for name, job := range remaining {
		ok := true
		for _, need := range job.Needs {
			if _, done := completed[need]; !done {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)
	return ready
}

func snapshot(mu *sync.Mutex, results map[string]types.Outcome) map[string]types.Outcome {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]types.Outcome, len(results))
	for k, v := range results {
		out[k] = v
	}
	return out
}

// executeJob runs one job: needs check, gate, secrets, then the stage
// executor for the plain job or each matrix cell.
func (e *Engine) executeJob(ctx context.Context, sem chan struct{}, run *types.Run, name string, job types.Job, upstream map[string]types.Outcome) *types.JobResult {
	log := e.log.WithJob(run.ID, name)
	result := &types.JobResult{Job: name, Stage: job.Stage, StartedAt: time.Now()}
	e.broker.Publish(types.RunEvent{Type: types.EventJobStarted, RunID: run.ID, Job: name})

	defer func() {
		result.FinishedAt = time.Now()
		if e.metrics != nil {
			e.metrics.JobFinished(job.Stage, result.Outcome.Kind, result.FinishedAt.Sub(result.StartedAt))
		}
	}()

	// A job never runs behind a broken upstream.
	for _, need := range job.Needs {
		if outcome := upstream[need]; !outcome.Succeeded() {
			result.Outcome = types.Skipped(fmt.Sprintf("needs %s which was %s", need, outcome.Kind))
			log.Info("job skipped", zap.String("reason", result.Outcome.Reason))
			return result
		}
	}

	if ok, reason := EvalGate(job.When, run.Event.Branch, upstream); !ok {
		result.Outcome = types.Skipped(reason)
		log.Info("job skipped", zap.String("reason", reason))
		return result
	}

	scoped, err := e.secrets.Scoped(job.Secrets)
	if err != nil {
		result.Outcome = types.Failure(err.Error())
		log.Error("secret resolution failed", zap.Error(err))
		return result
	}

	provider, ok := e.registry.Get(job.Stage)
	if !ok {
		result.Outcome = types.Failure(fmt.Sprintf("unknown stage %q", job.Stage))
		return result
	}

	if job.Matrix == nil {
		exec := e.executeCell(ctx, sem, provider, run, name, job, nil, scoped)
		result.Outcome = exec.Outcome
		result.Steps = exec.Steps
		return result
	}

	result.Cells = e.executeMatrix(ctx, sem, provider, run, name, job, scoped)
	result.Outcome = aggregateCells(result.Cells)
	return result
}

// executeMatrix runs every cell of the job's matrix concurrently. With
// fail-fast disabled (the default) a failing cell never cancels its
// siblings; every cell reports its own outcome.
func (e *Engine) executeMatrix(ctx context.Context, sem chan struct{}, provider stages.Provider, run *types.Run, name string, job types.Job, scoped map[string]string) []types.CellResult {
	cells := workflow.ExpandMatrix(job.Matrix)

	cellCtx := ctx
	var cancel context.CancelFunc
	if job.Matrix.FailFast {
		cellCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	results := make([]types.CellResult, len(cells))
	var wg sync.WaitGroup
	for i, cell := range cells {
		wg.Add(1)
		go func(i int, cell types.MatrixCell) {
			defer wg.Done()
			exec := e.executeCell(cellCtx, sem, provider, run, name, job, cell, scoped)
			results[i] = types.CellResult{
				Cell:     cell,
				Outcome:  exec.Outcome,
				Steps:    exec.Steps,
				Coverage: exec.Coverage,
			}
			if exec.Outcome.Failed() && cancel != nil {
				cancel()
			}
		}(i, cell)
	}
	wg.Wait()
	return results
}

// executeCell dispatches one unit of work, bounded by the engine's
// parallelism semaphore.
func (e *Engine) executeCell(ctx context.Context, sem chan struct{}, provider stages.Provider, run *types.Run, name string, job types.Job, cell types.MatrixCell, scoped map[string]string) *stages.Execution {
	cellKey := cell.Key()
	if cell != nil {
		e.broker.Publish(types.RunEvent{Type: types.EventCellStarted, RunID: run.ID, Job: name, Cell: cellKey})
	}

	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		canceled := types.Canceled("run canceled")
		if cell != nil {
			e.broker.Publish(types.RunEvent{Type: types.EventCellFinished, RunID: run.ID, Job: name, Cell: cellKey, Outcome: &canceled})
		}
		return &stages.Execution{Outcome: canceled}
	}

	exec := provider.Execute(ctx, &stages.Invocation{
		RunID:     run.ID,
		Job:       name,
		Spec:      job,
		Cell:      cell,
		Event:     run.Event,
		Env:       cellEnv(run, job, cell, scoped),
		Workspace: e.opts.Workspace,
	})

	if exec.Coverage != nil && e.metrics != nil {
		e.metrics.CoverageObserved(*exec.Coverage)
	}
	if cell != nil {
		outcome := exec.Outcome
		e.broker.Publish(types.RunEvent{Type: types.EventCellFinished, RunID: run.ID, Job: name, Cell: cellKey, Outcome: &outcome})
	}
	return exec
}

// cellEnv assembles the environment a cell executes with: run context,
// job env, scoped secrets, and the matrix axis values.
func cellEnv(run *types.Run, job types.Job, cell types.MatrixCell, scoped map[string]string) map[string]string {
	env := make(map[string]string, len(job.Env)+len(scoped)+len(cell)+4)
	env["CONVEYOR_RUN_ID"] = run.ID
	env["CONVEYOR_BRANCH"] = run.Event.Branch
	env["CONVEYOR_SHA"] = run.Event.SHA
	env["CONVEYOR_EVENT"] = string(run.Event.Kind)
	for k, v := range job.Env {
		env[k] = v
	}
	for k, v := range scoped {
		env[k] = v
	}
	for k, v := range cell {
		env[k] = v
	}
	return env
}

func (e *Engine) finishJob(run *types.Run, name string, result *types.JobResult) {
	run.SetJob(name, result)
	outcome := result.Outcome
	e.broker.Publish(types.RunEvent{
		Type:    types.EventJobFinished,
		RunID:   run.ID,
		Job:     name,
		Outcome: &outcome,
	})
}

// aggregateCells folds cell outcomes into a job outcome. Failure
// dominates: fail-fast cancels sibling cells, and that is still a
// failed job, not a canceled one. Cancellation without a failing cell
// only happens when the run itself was canceled.
func aggregateCells(cells []types.CellResult) types.Outcome {
	var failed, canceled *types.CellResult
	for i := range cells {
		switch cells[i].Outcome.Kind {
		case types.OutcomeFailure:
			if failed == nil {
				failed = &cells[i]
			}
		case types.OutcomeCanceled:
			if canceled == nil {
				canceled = &cells[i]
			}
		}
	}
	if failed != nil {
		return types.Failure(fmt.Sprintf("cell %s: %s", failed.Cell.Key(), failed.Outcome.Reason))
	}
	if canceled != nil {
		return types.Canceled(canceled.Outcome.Reason)
	}
	return types.Success()
}

// runStatus derives the run's terminal status from its job outcomes.
func runStatus(ctx context.Context, run *types.Run) types.RunStatus {
	if ctx.Err() != nil {
		return types.RunCanceled
	}
	failed := false
	for _, outcome := range run.Results() {
		switch outcome.Kind {
		case types.OutcomeCanceled:
			return types.RunCanceled
		case types.OutcomeFailure:
			failed = true
		}
	}
	if failed {
		return types.RunFailure
	}
	return types.RunSuccess
}
