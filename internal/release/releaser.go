package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/conveyorci/conveyor/internal/git"
	"github.com/conveyorci/conveyor/internal/logging"
)

// ErrShallowClone is returned when the checkout lacks the history the
// bump decision needs.
var ErrShallowClone = errors.New("shallow clone: full history is required to compute version bumps")

// Result describes what a release run did.
type Result struct {
	Released bool
	Version  Version
	Tag      string
	Level    Level
	Artifact string
}

// Releaser drives the semantic release procedure for one repository.
type Releaser struct {
	repo     git.Client
	index    *IndexClient
	log      *logging.Logger
	dir      string
	manifest string
}

// NewReleaser creates a releaser for the project rooted at dir.
func NewReleaser(dir string, repo git.Client, index *IndexClient, log *logging.Logger) *Releaser {
	return &Releaser{
		repo:     repo,
		index:    index,
		log:      log,
		dir:      dir,
		manifest: filepath.Join(dir, "pyproject.toml"),
	}
}

// Run inspects history since the last tag, decides whether a release is
// warranted, and executes the release saga. A history without
// release-worthy commits is a successful no-op.
func (r *Releaser) Run(ctx context.Context) (*Result, error) {
	shallow, err := r.repo.IsShallow(ctx)
	if err != nil {
		return nil, err
	}
	if shallow {
		return nil, ErrShallowClone
	}

	lastTag, err := r.repo.LastTag(ctx)
	if err != nil {
		return nil, err
	}

	commits, err := r.repo.CommitsSince(ctx, lastTag)
	if err != nil {
		return nil, err
	}

	parsed, level := Analyze(commits)
	if level == LevelNone {
		r.log.Info("no release-worthy commits since last tag",
			zap.String("last_tag", lastTag),
			zap.Int("commits", len(commits)))
		return &Result{Released: false, Level: LevelNone}, nil
	}

	name, current, err := ReadManifest(r.manifest)
	if err != nil {
		return nil, err
	}

	next := current.Bump(level)
	r.log.Info("release decided",
		zap.String("package", name),
		zap.String("current", current.String()),
		zap.String("next", next.String()),
		zap.String("level", level.String()))

	head, err := r.repo.Head(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Released: true, Version: next, Tag: next.Tag(), Level: level}
	if err := r.executeSaga(ctx, head, name, next, parsed, result); err != nil {
		return nil, err
	}
	return result, nil
}

// executeSaga sequences the release mutations so that cheaply
// reversible steps come first and the irreversible index upload last.
func (r *Releaser) executeSaga(ctx context.Context, head, name string, next Version, commits []ConventionalCommit, result *Result) error {
	changelogPath := filepath.Join(r.dir, "CHANGELOG.md")
	entry := RenderEntry(next, time.Now(), commits)

	var manifestPrev, changelogPrev []byte
	tag := next.Tag()

	saga := NewSaga(
		SagaStep{
			Name: "bump-manifest",
			Run: func(ctx context.Context) error {
				var err error
				manifestPrev, err = SetManifestVersion(r.manifest, next)
				return err
			},
			Compensate: func(ctx context.Context) error {
				return RestoreFile(r.manifest, manifestPrev)
			},
		},
		SagaStep{
			Name: "update-changelog",
			Run: func(ctx context.Context) error {
				var err error
				changelogPrev, err = UpdateChangelog(changelogPath, entry)
				return err
			},
			Compensate: func(ctx context.Context) error {
				return RestoreFile(changelogPath, changelogPrev)
			},
		},
		SagaStep{
			Name: "release-commit",
			Run: func(ctx context.Context) error {
				return r.repo.Commit(ctx, fmt.Sprintf("chore(release): %s", next), r.manifest, changelogPath)
			},
			Compensate: func(ctx context.Context) error {
				return r.repo.ResetHard(ctx, head)
			},
		},
		SagaStep{
			Name: "create-tag",
			Run: func(ctx context.Context) error {
				return r.repo.CreateTag(ctx, tag, fmt.Sprintf("release %s", next))
			},
			Compensate: func(ctx context.Context) error {
				return r.repo.DeleteTag(ctx, tag)
			},
		},
		SagaStep{
			Name: "create-release-record",
			Run: func(ctx context.Context) error {
				return r.index.CreateRelease(ctx, tag, entry)
			},
			Compensate: func(ctx context.Context) error {
				return r.index.DeleteRelease(ctx, tag)
			},
		},
		SagaStep{
			Name: "build-artifact",
			Run: func(ctx context.Context) error {
				dist := filepath.Join(r.dir, "dist")
				if err := os.MkdirAll(dist, 0o755); err != nil {
					return err
				}
				artifact, err := BuildSdist(r.dir, dist, name, next)
				if err != nil {
					return err
				}
				result.Artifact = artifact
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if result.Artifact == "" {
					return nil
				}
				return os.Remove(result.Artifact)
			},
		},
		// Irreversible: the index keeps the file once accepted.
		SagaStep{
			Name: "publish-package",
			Run: func(ctx context.Context) error {
				return r.index.UploadArtifact(ctx, result.Artifact)
			},
		},
	)

	return saga.Execute(ctx)
}
