// Package store keeps workflows and runs in memory. Runs are created
// here and mutated by the engine; reads always see a consistent copy of
// the run header.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conveyorci/conveyor/internal/types"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = fmt.Errorf("not found")

// Runs stores pipeline runs.
type Runs struct {
	mu   sync.RWMutex
	runs map[string]*types.Run
}

// NewRuns creates an empty run store.
func NewRuns() *Runs {
	return &Runs{runs: make(map[string]*types.Run)}
}

// Create registers a new pending run for the workflow and event.
func (s *Runs) Create(workflow string, event types.TriggerEvent) *types.Run {
	run := &types.Run{
		ID:        uuid.New().String(),
		Workflow:  workflow,
		Event:     event,
		Status:    types.RunPending,
		Jobs:      make(map[string]*types.JobResult),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
	return run
}

// Get returns a run by ID.
func (s *Runs) Get(id string) (*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, nil
}

// List returns all runs, newest first.
func (s *Runs) List() []*types.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
