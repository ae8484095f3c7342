package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/types"
)

const sampleWorkflow = `
name: python-package
on:
  push:
    branches: [main]
  pull_request: {}
jobs:
  lint:
    stage: lint
    steps:
      - name: pre-commit
        run: pre-commit run --all-files
  test:
    stage: test
    matrix:
      fail-fast: false
      axes:
        python: ["3.7", "3.8", "3.9"]
        os: [ubuntu-latest, windows-latest, macos-latest]
    steps:
      - name: install
        run: poetry install
      - name: pytest
        run: poetry run pytest --cov aiosteamist tests/test_init.py
  docs:
    stage: docs
    working-dir: docs
    steps:
      - name: build
        run: make html
  release:
    stage: release
    needs: [lint, test, docs]
    when:
      branch: main
      require: [lint, test, docs]
    secrets: [INDEX_TOKEN]
`

func TestParseSampleWorkflow(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	assert.Equal(t, "python-package", wf.Name)
	require.NotNil(t, wf.On.Push)
	assert.Equal(t, []string{"main"}, wf.On.Push.Branches)
	require.NotNil(t, wf.On.PullRequest)

	require.Len(t, wf.Jobs, 4)

	test := wf.Jobs["test"]
	require.NotNil(t, test.Matrix)
	assert.False(t, test.Matrix.FailFast)
	assert.Len(t, test.Matrix.Axes["python"], 3)
	assert.Len(t, test.Matrix.Axes["os"], 3)

	release := wf.Jobs["release"]
	assert.Equal(t, []string{"lint", "test", "docs"}, release.Needs)
	require.NotNil(t, release.When)
	assert.Equal(t, "main", release.When.Branch)
	assert.Equal(t, []string{"INDEX_TOKEN"}, release.Secrets)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "on:\n  push: {}\njobs:\n  a:\n    stage: lint\n    steps: [{run: noop}]",
			wantErr: "name is required",
		},
		{
			name:    "no triggers",
			yaml:    "name: x\njobs:\n  a:\n    stage: lint\n    steps: [{run: noop}]",
			wantErr: "no triggers",
		},
		{
			name:    "no jobs",
			yaml:    "name: x\non:\n  push: {}\n",
			wantErr: "no jobs",
		},
		{
			name:    "missing stage",
			yaml:    "name: x\non:\n  push: {}\njobs:\n  a:\n    steps: [{run: noop}]",
			wantErr: "stage is required",
		},
		{
			name:    "unknown needs",
			yaml:    "name: x\non:\n  push: {}\njobs:\n  a:\n    stage: lint\n    needs: [ghost]\n    steps: [{run: noop}]",
			wantErr: "unknown needs target",
		},
		{
			name:    "unknown require",
			yaml:    "name: x\non:\n  push: {}\njobs:\n  a:\n    stage: lint\n    when:\n      require: [ghost]\n    steps: [{run: noop}]",
			wantErr: "unknown require target",
		},
		{
			name: "dependency cycle",
			yaml: "name: x\non:\n  push: {}\njobs:\n" +
				"  a:\n    stage: lint\n    needs: [b]\n    steps: [{run: noop}]\n" +
				"  b:\n    stage: lint\n    needs: [a]\n    steps: [{run: noop}]",
			wantErr: "dependency cycle",
		},
		{
			name:    "empty matrix",
			yaml:    "name: x\non:\n  push: {}\njobs:\n  a:\n    stage: test\n    matrix: {axes: {}}\n    steps: [{run: noop}]",
			wantErr: "matrix declares no axes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg.yaml"), []byte(sampleWorkflow), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	workflows, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "python-package", workflows[0].Name)
}

func TestLoadDirBadWorkflow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: x\n"), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
}

func TestValidateReleaseWithoutSteps(t *testing.T) {
	// Release jobs have no inline steps; the release executor owns the
	// whole procedure.
	wf := &types.Workflow{
		Name: "x",
		On:   types.Triggers{Push: &types.BranchFilter{}},
		Jobs: map[string]types.Job{
			"release": {Stage: "release"},
		},
	}
	require.NoError(t, Validate(wf))
}
