package release

import (
	"context"
	"errors"
	"fmt"
)

// SagaStep is one externally visible mutation of the release procedure.
// Compensate undoes it when a later step fails; a nil Compensate marks
// the step irreversible, so irreversible steps must be sequenced last.
type SagaStep struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga executes steps in order. On failure it runs the compensations of
// every completed step in reverse and reports both the original error
// and any compensation errors.
type Saga struct {
	steps []SagaStep
}

// NewSaga creates a saga over the given steps.
func NewSaga(steps ...SagaStep) *Saga {
	return &Saga{steps: steps}
}

// Execute runs the saga. Compensation uses a fresh context so a
// canceled run still rolls back.
func (s *Saga) Execute(ctx context.Context) error {
	var completed []SagaStep

	for _, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			failure := fmt.Errorf("release step %s: %w", step.Name, err)
			if compErr := compensate(completed); compErr != nil {
				return errors.Join(failure, compErr)
			}
			return failure
		}
		completed = append(completed, step)
	}
	return nil
}

func compensate(completed []SagaStep) error {
	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
