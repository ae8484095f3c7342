package stages

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/conveyorci/conveyor/internal/command"
	"github.com/conveyorci/conveyor/internal/types"
)

// runSteps executes a job's steps in order, stopping at the first
// failure. It returns the step results and whether all steps passed.
func runSteps(ctx context.Context, runner command.Runner, inv *Invocation) ([]types.StepResult, bool) {
	results := make([]types.StepResult, 0, len(inv.Spec.Steps))

	for i, step := range inv.Spec.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}

		env := make(map[string]string, len(inv.Env)+len(step.Env))
		for k, v := range inv.Env {
			env[k] = v
		}
		for k, v := range step.Env {
			env[k] = v
		}

		dir := inv.Workspace
		if inv.Spec.WorkingDir != "" {
			dir = filepath.Join(dir, inv.Spec.WorkingDir)
		}
		if step.WorkingDir != "" {
			dir = filepath.Join(dir, step.WorkingDir)
		}

		result, err := runner.Run(ctx, command.Spec{
			Name:   name,
			Script: step.Run,
			Dir:    dir,
			Env:    env,
		})

		sr := types.StepResult{
			Name:     name,
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Duration: result.Duration,
		}

		switch {
		case err != nil && ctx.Err() != nil:
			sr.Outcome = types.Canceled("run canceled")
			results = append(results, sr)
			return results, false
		case err != nil:
			sr.Outcome = types.Failure(err.Error())
			results = append(results, sr)
			return results, false
		case result.ExitCode != 0:
			sr.Outcome = types.Failure(fmt.Sprintf("exit code %d", result.ExitCode))
			results = append(results, sr)
			return results, false
		default:
			sr.Outcome = types.Success()
			results = append(results, sr)
		}
	}
	return results, true
}

// stepFailure summarizes why the step sequence stopped.
func stepFailure(steps []types.StepResult) string {
	if len(steps) == 0 {
		return "no steps executed"
	}
	last := steps[len(steps)-1]
	return fmt.Sprintf("step %s: %s", last.Name, last.Outcome.Reason)
}
