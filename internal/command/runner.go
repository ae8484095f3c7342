// Package command executes job steps through the configured shell.
package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// Spec describes a single command invocation.
type Spec struct {
	Name   string
	Script string
	Dir    string
	Env    map[string]string
}

// Result captures the observable outcome of a command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes command specs. Implementations must be safe for
// concurrent use; matrix cells run in parallel.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ShellRunner executes scripts with `shell -c`.
type ShellRunner struct {
	Shell string
}

// NewShellRunner creates a runner for the given shell, defaulting to
// /bin/sh.
func NewShellRunner(shell string) *ShellRunner {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ShellRunner{Shell: shell}
}

// Run executes the script and returns its captured output. A non-zero
// exit is reported in Result.ExitCode, not as an error; errors are
// reserved for failures to start or context cancellation.
func (r *ShellRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.Shell, "-c", spec.Script)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Command ran to completion with a non-zero status.
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, err
	}
	return result, nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	merged := make([]string, len(base), len(base)+len(extra))
	copy(merged, base)
	for k, v := range extra {
		merged = append(merged, k+"="+v)
	}
	return merged
}
