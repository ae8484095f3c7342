package release

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSagaRunsInOrder(t *testing.T) {
	var order []string
	step := func(name string) SagaStep {
		return SagaStep{
			Name: name,
			Run: func(ctx context.Context) error {
				order = append(order, name)
				return nil
			},
		}
	}

	saga := NewSaga(step("a"), step("b"), step("c"))
	require.NoError(t, saga.Execute(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSagaCompensatesInReverse(t *testing.T) {
	var compensated []string
	step := func(name string, fail bool) SagaStep {
		return SagaStep{
			Name: name,
			Run: func(ctx context.Context) error {
				if fail {
					return errors.New("boom")
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				compensated = append(compensated, name)
				return nil
			},
		}
	}

	saga := NewSaga(step("tag", false), step("record", false), step("publish", true))
	err := saga.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release step publish")

	// Completed steps roll back newest-first; the failed step itself
	// is never compensated.
	assert.Equal(t, []string{"record", "tag"}, compensated)
}

func TestSagaStopsAtFirstFailure(t *testing.T) {
	var ran []string
	saga := NewSaga(
		SagaStep{Name: "first", Run: func(ctx context.Context) error {
			ran = append(ran, "first")
			return errors.New("boom")
		}},
		SagaStep{Name: "second", Run: func(ctx context.Context) error {
			ran = append(ran, "second")
			return nil
		}},
	)

	require.Error(t, saga.Execute(context.Background()))
	assert.Equal(t, []string{"first"}, ran)
}

func TestSagaReportsCompensationFailure(t *testing.T) {
	saga := NewSaga(
		SagaStep{
			Name: "tag",
			Run:  func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				return errors.New("tag delete refused")
			},
		},
		SagaStep{Name: "publish", Run: func(ctx context.Context) error {
			return errors.New("index rejected upload")
		}},
	)

	err := saga.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index rejected upload")
	assert.Contains(t, err.Error(), "tag delete refused")
}

func TestSagaIrreversibleStepsSkipCompensation(t *testing.T) {
	saga := NewSaga(
		SagaStep{Name: "publish", Run: func(ctx context.Context) error { return nil }},
		SagaStep{Name: "after", Run: func(ctx context.Context) error { return errors.New("boom") }},
	)

	// A nil Compensate on a completed step must not panic.
	require.Error(t, saga.Execute(context.Background()))
}
