package git

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/command"
)

// fakeRunner records scripts and replays canned results.
type fakeRunner struct {
	scripts []string
	results map[string]command.Result
}

func (f *fakeRunner) Run(_ context.Context, spec command.Spec) (command.Result, error) {
	f.scripts = append(f.scripts, spec.Script)
	for prefix, result := range f.results {
		if strings.HasPrefix(spec.Script, prefix) {
			return result, nil
		}
	}
	return command.Result{ExitCode: 0}, nil
}

func TestParseLog(t *testing.T) {
	out := "abc123" + fieldSep + "feat: add timed steam support" + fieldSep + "body line" + recordSep +
		"def456" + fieldSep + "fix: retry status polling" + fieldSep + recordSep

	commits := ParseLog(out)
	require.Len(t, commits, 2)
	assert.Equal(t, "abc123", commits[0].SHA)
	assert.Equal(t, "feat: add timed steam support", commits[0].Subject)
	assert.Equal(t, "body line", commits[0].Body)
	assert.Equal(t, "fix: retry status polling", commits[1].Subject)
	assert.Empty(t, commits[1].Body)
}

func TestParseLogEmpty(t *testing.T) {
	assert.Empty(t, ParseLog(""))
	assert.Empty(t, ParseLog("\n"))
}

func TestLastTagNoTags(t *testing.T) {
	runner := &fakeRunner{results: map[string]command.Result{
		"git describe": {ExitCode: 128, Stderr: "fatal: No names found, cannot describe anything."},
	}}
	cli := NewCLI(".", runner)

	tag, err := cli.LastTag(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tag)
}

func TestLastTag(t *testing.T) {
	runner := &fakeRunner{results: map[string]command.Result{
		"git describe": {ExitCode: 0, Stdout: "v0.3.1\n"},
	}}
	cli := NewCLI(".", runner)

	tag, err := cli.LastTag(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v0.3.1", tag)
}

func TestIsShallow(t *testing.T) {
	runner := &fakeRunner{results: map[string]command.Result{
		"git rev-parse --is-shallow-repository": {ExitCode: 0, Stdout: "true\n"},
	}}
	cli := NewCLI(".", runner)

	shallow, err := cli.IsShallow(context.Background())
	require.NoError(t, err)
	assert.True(t, shallow)
}

func TestCommitsSinceRange(t *testing.T) {
	runner := &fakeRunner{}
	cli := NewCLI(".", runner)

	_, err := cli.CommitsSince(context.Background(), "v1.0.0")
	require.NoError(t, err)
	require.Len(t, runner.scripts, 1)
	assert.Contains(t, runner.scripts[0], "v1.0.0..HEAD")
}

func TestCommandFailure(t *testing.T) {
	runner := &fakeRunner{results: map[string]command.Result{
		"git tag -a": {ExitCode: 128, Stderr: "fatal: tag already exists"},
	}}
	cli := NewCLI(".", runner)

	err := cli.CreateTag(context.Background(), "v1.0.0", "release v1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tag already exists")
}
