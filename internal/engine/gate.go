package engine

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conveyorci/conveyor/internal/types"
)

// EvalGate evaluates a job gate against the effective branch and the
// outcomes collected so far. It returns whether the gate holds and, if
// not, the reason the job is skipped.
func EvalGate(gate *types.Gate, branch string, results map[string]types.Outcome) (bool, string) {
	if gate == nil {
		return true, ""
	}

	if gate.Branch != "" {
		match, err := doublestar.Match(gate.Branch, branch)
		if err != nil {
			return false, fmt.Sprintf("invalid branch pattern %q", gate.Branch)
		}
		if !match {
			return false, fmt.Sprintf("branch %s does not match %s", branch, gate.Branch)
		}
	}

	for _, name := range gate.Require {
		outcome, ok := results[name]
		if !ok {
			return false, fmt.Sprintf("required job %s did not run", name)
		}
		if !outcome.Succeeded() {
			return false, fmt.Sprintf("required job %s was %s", name, outcome.Kind)
		}
	}
	return true, ""
}
