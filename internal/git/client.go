// Package git wraps the git CLI for the operations the release stage
// needs: history inspection, tagging, and rollback.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/conveyorci/conveyor/internal/command"
)

// Field and record separators used to parse `git log` output without
// ambiguity from multi-line commit bodies.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Commit is one entry of repository history.
type Commit struct {
	SHA     string
	Subject string
	Body    string
}

// Client is the repository interface the release stage depends on.
type Client interface {
	IsShallow(ctx context.Context) (bool, error)
	Head(ctx context.Context) (string, error)
	LastTag(ctx context.Context) (string, error)
	CommitsSince(ctx context.Context, tag string) ([]Commit, error)
	Commit(ctx context.Context, message string, paths ...string) error
	ResetHard(ctx context.Context, ref string) error
	CreateTag(ctx context.Context, name, message string) error
	DeleteTag(ctx context.Context, name string) error
}

// CLI executes git through the shared command runner.
type CLI struct {
	dir    string
	runner command.Runner
}

// NewCLI creates a git client rooted at dir.
func NewCLI(dir string, runner command.Runner) *CLI {
	return &CLI{dir: dir, runner: runner}
}

func (c *CLI) git(ctx context.Context, args string) (string, error) {
	result, err := c.runner.Run(ctx, command.Spec{
		Name:   "git",
		Script: "git " + args,
		Dir:    c.dir,
	})
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args, err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git %s: exit %d: %s", args, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return strings.TrimSpace(result.Stdout), nil
}

// IsShallow reports whether the checkout is shallow. Semantic release
// needs full history to compute version bumps.
func (c *CLI) IsShallow(ctx context.Context) (bool, error) {
	out, err := c.git(ctx, "rev-parse --is-shallow-repository")
	if err != nil {
		return false, err
	}
	return out == "true", nil
}

// Head returns the current commit SHA.
func (c *CLI) Head(ctx context.Context) (string, error) {
	return c.git(ctx, "rev-parse HEAD")
}

// LastTag returns the most recent reachable tag, or "" when the
// repository has never been tagged.
func (c *CLI) LastTag(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "describe --tags --abbrev=0")
	if err != nil {
		// No tags yet is a normal state for a first release.
		if strings.Contains(err.Error(), "cannot describe") ||
			strings.Contains(err.Error(), "No names found") {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// CommitsSince lists commits after the given tag, newest first. An
// empty tag lists the full history.
func (c *CLI) CommitsSince(ctx context.Context, tag string) ([]Commit, error) {
	args := fmt.Sprintf("log --format=%%H%s%%s%s%%b%s", fieldSep, fieldSep, recordSep)
	if tag != "" {
		args += " " + tag + "..HEAD"
	}
	out, err := c.git(ctx, args)
	if err != nil {
		return nil, err
	}
	return ParseLog(out), nil
}

// Commit stages the given paths and records a commit.
func (c *CLI) Commit(ctx context.Context, message string, paths ...string) error {
	if len(paths) > 0 {
		if _, err := c.git(ctx, "add -- "+strings.Join(paths, " ")); err != nil {
			return err
		}
	}
	_, err := c.git(ctx, fmt.Sprintf("commit -m %q", message))
	return err
}

// ResetHard moves the branch back to ref, discarding later commits.
func (c *CLI) ResetHard(ctx context.Context, ref string) error {
	_, err := c.git(ctx, "reset --hard "+ref)
	return err
}

// CreateTag records an annotated tag at HEAD.
func (c *CLI) CreateTag(ctx context.Context, name, message string) error {
	_, err := c.git(ctx, fmt.Sprintf("tag -a %s -m %q", name, message))
	return err
}

// DeleteTag removes a tag.
func (c *CLI) DeleteTag(ctx context.Context, name string) error {
	_, err := c.git(ctx, "tag -d "+name)
	return err
}

// ParseLog parses `git log` output produced with the client's field and
// record separators.
func ParseLog(out string) []Commit {
	var commits []Commit
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		parts := strings.SplitN(record, fieldSep, 3)
		if len(parts) < 2 {
			continue
		}
		commit := Commit{
			SHA:     strings.TrimSpace(parts[0]),
			Subject: strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			commit.Body = strings.TrimSpace(parts[2])
		}
		commits = append(commits, commit)
	}
	return commits
}
