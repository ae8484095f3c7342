package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellRunnerSuccess(t *testing.T) {
	runner := NewShellRunner("")

	result, err := runner.Run(context.Background(), Spec{
		Name:   "echo",
		Script: "echo hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "hello")
}

func TestShellRunnerNonZeroExit(t *testing.T) {
	runner := NewShellRunner("/bin/sh")

	result, err := runner.Run(context.Background(), Spec{
		Name:   "fail",
		Script: "echo oops >&2; exit 3",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Stderr, "oops")
}

func TestShellRunnerEnv(t *testing.T) {
	runner := NewShellRunner("")

	result, err := runner.Run(context.Background(), Spec{
		Script: "echo $CONVEYOR_TEST_VALUE",
		Env:    map[string]string{"CONVEYOR_TEST_VALUE": "injected"},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "injected")
}

func TestShellRunnerWorkingDir(t *testing.T) {
	dir := t.TempDir()
	runner := NewShellRunner("")

	result, err := runner.Run(context.Background(), Spec{
		Script: "pwd",
		Dir:    dir,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, dir)
}

func TestShellRunnerCanceledContext(t *testing.T) {
	runner := NewShellRunner("")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, Spec{Script: "sleep 10"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
