package workflow

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/conveyorci/conveyor/internal/types"
)

// Matches reports whether an event starts a run of the workflow. Branch
// filters are doublestar globs; an empty filter matches every branch.
func Matches(wf *types.Workflow, event types.TriggerEvent) bool {
	switch event.Kind {
	case types.EventPush:
		return matchesFilter(wf.On.Push, event.Branch)
	case types.EventPullRequest:
		return matchesFilter(wf.On.PullRequest, event.Branch)
	default:
		return false
	}
}

func matchesFilter(filter *types.BranchFilter, branch string) bool {
	if filter == nil {
		return false
	}
	if len(filter.Branches) == 0 {
		return true
	}
	for _, pattern := range filter.Branches {
		// Invalid patterns are treated as non-matching rather than
		// failing the whole trigger evaluation.
		if ok, err := doublestar.Match(pattern, branch); err == nil && ok {
			return true
		}
	}
	return false
}
