// Package workflow parses and validates declarative pipeline definitions.
package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/conveyorci/conveyor/internal/types"
)

var (
	ErrNoName     = errors.New("workflow name is required")
	ErrNoTriggers = errors.New("workflow declares no triggers")
	ErrNoJobs     = errors.New("workflow declares no jobs")
)

// Parse decodes a YAML workflow definition and validates it.
func Parse(data []byte) (*types.Workflow, error) {
	var wf types.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if err := Validate(&wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// ParseFile reads and parses a workflow definition from disk.
func ParseFile(path string) (*types.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", path, err)
	}
	return Parse(data)
}

// LoadDir parses every *.yaml and *.yml workflow in a directory.
func LoadDir(dir string) ([]*types.Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows dir: %w", err)
	}

	var workflows []*types.Workflow
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		wf, err := ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// Validate checks structural invariants: named, triggered, non-empty
// jobs, known stage names left to the executor registry, resolvable
// needs/require references, and an acyclic dependency graph.
func Validate(wf *types.Workflow) error {
	if wf.Name == "" {
		return ErrNoName
	}
	if wf.On.Push == nil && wf.On.PullRequest == nil {
		return fmt.Errorf("workflow %s: %w", wf.Name, ErrNoTriggers)
	}
	if len(wf.Jobs) == 0 {
		return fmt.Errorf("workflow %s: %w", wf.Name, ErrNoJobs)
	}

	for name, job := range wf.Jobs {
		if job.Stage == "" {
			return fmt.Errorf("job %s: stage is required", name)
		}
		if len(job.Steps) == 0 && job.Stage != "release" {
			return fmt.Errorf("job %s: at least one step is required", name)
		}
		for _, need := range job.Needs {
			if _, ok := wf.Jobs[need]; !ok {
				return fmt.Errorf("job %s: unknown needs target %q", name, need)
			}
		}
		if job.When != nil {
			for _, req := range job.When.Require {
				if _, ok := wf.Jobs[req]; !ok {
					return fmt.Errorf("job %s: unknown require target %q", name, req)
				}
			}
		}
		if job.Matrix != nil && len(job.Matrix.Axes) == 0 {
			return fmt.Errorf("job %s: matrix declares no axes", name)
		}
	}

	if cycle := findCycle(wf.Jobs); len(cycle) > 0 {
		return fmt.Errorf("workflow %s: dependency cycle: %s", wf.Name, strings.Join(cycle, " -> "))
	}
	return nil
}

// findCycle returns a dependency cycle among jobs, or nil.
func findCycle(jobs map[string]types.Job) []string {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(jobs))
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	var cycle []string
	var visit func(name string, path []string) bool
	visit = func(name string, path []string) bool {
		switch state[name] {
		case visiting:
			cycle = append(path, name)
			return true
		case done:
			return false
		}
		state[name] = visiting
		for _, need := range jobs[name].Needs {
			if visit(need, append(path, name)) {
				return true
			}
		}
		state[name] = done
		return false
	}

	for _, name := range names {
		if visit(name, nil) {
			return cycle
		}
	}
	return nil
}
