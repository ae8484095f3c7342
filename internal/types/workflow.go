package types

import (
	"fmt"
	"sort"
	"strings"
)

// Workflow is a declarative pipeline definition: trigger conditions plus
// a dependency graph of jobs.
type Workflow struct {
	Name string         `yaml:"name" json:"name"`
	On   Triggers       `yaml:"on" json:"on"`
	Jobs map[string]Job `yaml:"jobs" json:"jobs"`
}

// Triggers declares which events start a run.
type Triggers struct {
	Push        *BranchFilter `yaml:"push,omitempty" json:"push,omitempty"`
	PullRequest *BranchFilter `yaml:"pull_request,omitempty" json:"pull_request,omitempty"`
}

// BranchFilter restricts a trigger to branches matching any of the
// glob patterns. An empty list matches every branch.
type BranchFilter struct {
	Branches []string `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// Job is one node in the workflow graph. Needs orders execution; When
// gates it. A job whose gate does not hold is skipped, never failed.
type Job struct {
	Stage      string            `yaml:"stage" json:"stage"`
	Needs      []string          `yaml:"needs,omitempty" json:"needs,omitempty"`
	When       *Gate             `yaml:"when,omitempty" json:"when,omitempty"`
	Matrix     *Matrix           `yaml:"matrix,omitempty" json:"matrix,omitempty"`
	Steps      []Step            `yaml:"steps,omitempty" json:"steps,omitempty"`
	Env        map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Secrets    []string          `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	WorkingDir string            `yaml:"working-dir,omitempty" json:"working_dir,omitempty"`
}

// Gate is an explicit boolean predicate over the effective branch and
// the collected results of upstream jobs.
type Gate struct {
	Branch  string   `yaml:"branch,omitempty" json:"branch,omitempty"`
	Require []string `yaml:"require,omitempty" json:"require,omitempty"`
}

// Matrix declares a Cartesian product of named axes. FailFast defaults
// to false: a failing cell does not cancel its siblings.
type Matrix struct {
	Axes     map[string][]string `yaml:"axes" json:"axes"`
	FailFast bool                `yaml:"fail-fast,omitempty" json:"fail_fast,omitempty"`
}

// Step is a single command executed inside a job or matrix cell.
type Step struct {
	Name       string            `yaml:"name,omitempty" json:"name,omitempty"`
	Run        string            `yaml:"run" json:"run"`
	Env        map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	WorkingDir string            `yaml:"working-dir,omitempty" json:"working_dir,omitempty"`
}

// MatrixCell is one point of the matrix product: axis name to value.
type MatrixCell map[string]string

// Key returns a canonical, order-independent identifier for the cell,
// e.g. "os=ubuntu-latest,python=3.9".
func (c MatrixCell) Key() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, c[k]))
	}
	return strings.Join(parts, ",")
}

// EventKind enumerates supported trigger event kinds.
type EventKind string

const (
	EventPush        EventKind = "push"
	EventPullRequest EventKind = "pull_request"
)

// TriggerEvent is a repository event delivered to the orchestrator.
type TriggerEvent struct {
	Kind   EventKind `json:"kind"`
	Branch string    `json:"branch"`
	SHA    string    `json:"sha,omitempty"`
	Repo   string    `json:"repo,omitempty"`
}
