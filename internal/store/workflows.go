package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/conveyorci/conveyor/internal/types"
	"github.com/conveyorci/conveyor/internal/workflow"
)

// Workflows stores registered workflow definitions keyed by name.
type Workflows struct {
	mu        sync.RWMutex
	workflows map[string]*types.Workflow
}

// NewWorkflows creates an empty workflow store.
func NewWorkflows() *Workflows {
	return &Workflows{workflows: make(map[string]*types.Workflow)}
}

// Put validates and registers a workflow, replacing any previous
// definition with the same name.
func (s *Workflows) Put(wf *types.Workflow) error {
	if err := workflow.Validate(wf); err != nil {
		return err
	}
	s.mu.Lock()
	s.workflows[wf.Name] = wf
	s.mu.Unlock()
	return nil
}

// Get returns a workflow by name.
func (s *Workflows) Get(name string) (*types.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[name]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", name, ErrNotFound)
	}
	return wf, nil
}

// List returns all workflows sorted by name.
func (s *Workflows) List() []*types.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadDir registers every workflow found under dir.
func (s *Workflows) LoadDir(dir string) (int, error) {
	found, err := workflow.LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, wf := range found {
		if err := s.Put(wf); err != nil {
			return 0, fmt.Errorf("workflow %s: %w", wf.Name, err)
		}
	}
	return len(found), nil
}

// Matching returns workflows whose triggers match the event.
func (s *Workflows) Matching(event types.TriggerEvent) []*types.Workflow {
	var out []*types.Workflow
	for _, wf := range s.List() {
		if workflow.Matches(wf, event) {
			out = append(out, wf)
		}
	}
	return out
}
