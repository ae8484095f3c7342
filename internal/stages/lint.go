package stages

import (
	"context"

	"github.com/conveyorci/conveyor/internal/command"
	"github.com/conveyorci/conveyor/internal/types"
)

// Lint runs the configured static-check commands.
type Lint struct {
	runner command.Runner
}

// NewLint creates the lint executor.
func NewLint(runner command.Runner) *Lint {
	return &Lint{runner: runner}
}

// Definition returns the stage metadata.
func (l *Lint) Definition() Stage {
	return Stage{
		ID:          "lint",
		Name:        "Lint",
		Description: "Static style and formatting checks",
	}
}

// Execute runs the lint steps. Success is binary; nothing downstream
// consumes lint output.
func (l *Lint) Execute(ctx context.Context, inv *Invocation) *Execution {
	steps, ok := runSteps(ctx, l.runner, inv)
	if !ok {
		return &Execution{Outcome: types.Failure(stepFailure(steps)), Steps: steps}
	}
	return &Execution{Outcome: types.Success(), Steps: steps}
}
