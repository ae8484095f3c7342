package stages

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/conveyorci/conveyor/internal/command"
	"github.com/conveyorci/conveyor/internal/coverage"
	"github.com/conveyorci/conveyor/internal/logging"
	"github.com/conveyorci/conveyor/internal/types"
)

// coverageReportFile is where the test command leaves its coverage
// report, relative to the job working directory.
const coverageReportFile = "coverage.json"

// Test runs the test suite for one matrix cell and ships its coverage
// report to the coverage service.
type Test struct {
	runner   command.Runner
	coverage *coverage.Client
	log      *logging.Logger
}

// NewTest creates the test executor.
func NewTest(runner command.Runner, cov *coverage.Client, log *logging.Logger) *Test {
	return &Test{runner: runner, coverage: cov, log: log}
}

// Definition returns the stage metadata.
func (t *Test) Definition() Stage {
	return Stage{
		ID:          "test",
		Name:        "Test",
		Description: "Test suite execution with coverage collection",
	}
}

// Execute runs the test steps and uploads coverage. An upload failure
// is logged and never fails the cell.
func (t *Test) Execute(ctx context.Context, inv *Invocation) *Execution {
	steps, ok := runSteps(ctx, t.runner, inv)
	if !ok {
		return &Execution{Outcome: types.Failure(stepFailure(steps)), Steps: steps}
	}

	exec := &Execution{Outcome: types.Success(), Steps: steps}

	reportPath := filepath.Join(inv.Workspace, inv.Spec.WorkingDir, coverageReportFile)
	report, err := coverage.ParseFile(reportPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.log.Warn("coverage report unreadable",
				zap.String("path", reportPath), zap.Error(err))
		}
		return exec
	}

	percent := report.Totals.PercentCovered
	exec.Coverage = &percent

	if err := t.coverage.Send(ctx, coverage.Upload{
		Branch:  inv.Event.Branch,
		SHA:     inv.Event.SHA,
		Job:     inv.Job,
		Cell:    inv.Cell.Key(),
		Percent: percent,
	}); err != nil {
		// Best effort: the cell already passed its tests.
		t.log.Warn("coverage upload failed",
			zap.String("job", inv.Job),
			zap.String("cell", inv.Cell.Key()),
			zap.Error(err))
	}
	return exec
}
