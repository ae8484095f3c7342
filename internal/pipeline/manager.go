// Package pipeline orchestrates run lifecycle: it resolves trigger
// events to workflows, launches runs on the engine, and tracks them so
// they can be canceled.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/conveyorci/conveyor/internal/engine"
	"github.com/conveyorci/conveyor/internal/logging"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/types"
)

// Manager orchestrates run lifecycle.
type Manager struct {
	workflows *store.Workflows
	runs      *store.Runs
	engine    *engine.Engine
	log       *logging.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a run manager.
func NewManager(workflows *store.Workflows, runs *store.Runs, eng *engine.Engine, log *logging.Logger) *Manager {
	return &Manager{
		workflows: workflows,
		runs:      runs,
		engine:    eng,
		log:       log,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Trigger starts a run for every workflow whose triggers match the
// event. Runs execute asynchronously; the returned runs are pending.
func (m *Manager) Trigger(event types.TriggerEvent) ([]*types.Run, error) {
	if event.Kind != types.EventPush && event.Kind != types.EventPullRequest {
		return nil, fmt.Errorf("unsupported event kind %q", event.Kind)
	}
	if event.Branch == "" {
		return nil, fmt.Errorf("event branch is required")
	}

	matched := m.workflows.Matching(event)
	runs := make([]*types.Run, 0, len(matched))
	for _, wf := range matched {
		runs = append(runs, m.launch(wf, event))
	}
	return runs, nil
}

// Start runs one named workflow regardless of its trigger filters.
func (m *Manager) Start(name string, event types.TriggerEvent) (*types.Run, error) {
	wf, err := m.workflows.Get(name)
	if err != nil {
		return nil, err
	}
	return m.launch(wf, event), nil
}

// launch creates the run record and executes it in the background.
func (m *Manager) launch(wf *types.Workflow, event types.TriggerEvent) *types.Run {
	run := m.runs.Create(wf.Name, event)

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[run.ID] = cancel
	m.mu.Unlock()

	m.log.Info("run launched",
		zap.String("run_id", run.ID),
		zap.String("workflow", wf.Name),
		zap.String("branch", event.Branch))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.cancels, run.ID)
			m.mu.Unlock()
			cancel()
		}()
		m.engine.Execute(ctx, run, wf)
	}()
	return run
}

// Cancel stops an in-flight run. Canceling a finished run is an error.
func (m *Manager) Cancel(runID string) error {
	if _, err := m.runs.Get(runID); err != nil {
		return err
	}

	m.mu.Lock()
	cancel, ok := m.cancels[runID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s is not running", runID)
	}
	cancel()
	return nil
}

// Wait blocks until all in-flight runs finish. Used during shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}
