package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/conveyorci/conveyor/internal/logging"
	"github.com/conveyorci/conveyor/internal/release"
	"github.com/conveyorci/conveyor/internal/types"
)

// ReleaseRecorder counts release attempts. May be nil.
type ReleaseRecorder interface {
	ReleaseAttempted(result string)
}

// Release runs the semantic release procedure. It has no steps of its
// own; the release package owns the whole saga.
type Release struct {
	releaser *release.Releaser
	recorder ReleaseRecorder
	log      *logging.Logger
}

// NewRelease creates the release executor.
func NewRelease(releaser *release.Releaser, recorder ReleaseRecorder, log *logging.Logger) *Release {
	return &Release{releaser: releaser, recorder: recorder, log: log}
}

func (r *Release) record(result string) {
	if r.recorder != nil {
		r.recorder.ReleaseAttempted(result)
	}
}

// Definition returns the stage metadata.
func (r *Release) Definition() Stage {
	return Stage{
		ID:          "release",
		Name:        "Release",
		Description: "Semantic version release and package publication",
	}
}

// Execute runs the release. A history without release-worthy commits is
// a success, not a failure.
func (r *Release) Execute(ctx context.Context, inv *Invocation) *Execution {
	result, err := r.releaser.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return &Execution{Outcome: types.Canceled("run canceled")}
		}
		r.record("failed")
		return &Execution{Outcome: types.Failure(err.Error())}
	}

	if !result.Released {
		r.record("noop")
		r.log.Info("release skipped: nothing to publish",
			zap.String("run_id", inv.RunID))
		return &Execution{Outcome: types.Success()}
	}

	r.record("published")
	r.log.Info("release published",
		zap.String("run_id", inv.RunID),
		zap.String("tag", result.Tag),
		zap.String("level", result.Level.String()))
	return &Execution{Outcome: types.Success()}
}
