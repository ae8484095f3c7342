// Package stages provides the executors jobs are dispatched to: lint,
// test, docs, and release. Executors register in a Registry keyed by
// stage ID.
package stages

import (
	"context"
	"fmt"
	"sync"

	"github.com/conveyorci/conveyor/internal/types"
)

// Stage describes an executor.
type Stage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Invocation carries everything an executor needs for one job or one
// matrix cell.
type Invocation struct {
	RunID     string
	Job       string
	Spec      types.Job
	Cell      types.MatrixCell
	Event     types.TriggerEvent
	Env       map[string]string
	Workspace string
}

// Execution is what an executor produced.
type Execution struct {
	Outcome  types.Outcome
	Steps    []types.StepResult
	Coverage *float64
}

// Provider is a stage executor implementation.
type Provider interface {
	Definition() Stage
	Execute(ctx context.Context, inv *Invocation) *Execution
}

// Registry manages stage executor discovery.
type Registry struct {
	providers sync.Map
}

// NewRegistry creates a new stage registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a stage executor.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("stage ID cannot be empty")
	}
	r.providers.Store(def.ID, provider)
	return nil
}

// Get retrieves an executor by stage ID.
func (r *Registry) Get(stageID string) (Provider, bool) {
	val, ok := r.providers.Load(stageID)
	if !ok {
		return nil, false
	}
	return val.(Provider), true
}

// List returns all registered stage definitions.
func (r *Registry) List() []Stage {
	var defs []Stage
	r.providers.Range(func(_, value interface{}) bool {
		defs = append(defs, value.(Provider).Definition())
		return true
	})
	return defs
}
