package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/types"
)

func TestMatches(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	tests := []struct {
		name  string
		event types.TriggerEvent
		want  bool
	}{
		{
			name:  "push to main",
			event: types.TriggerEvent{Kind: types.EventPush, Branch: "main"},
			want:  true,
		},
		{
			name:  "push to feature branch",
			event: types.TriggerEvent{Kind: types.EventPush, Branch: "feature/retry"},
			want:  false,
		},
		{
			name:  "pull request from any branch",
			event: types.TriggerEvent{Kind: types.EventPullRequest, Branch: "feature/retry"},
			want:  true,
		},
		{
			name:  "unknown event kind",
			event: types.TriggerEvent{Kind: "schedule", Branch: "main"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(wf, tt.event))
		})
	}
}

func TestMatchesGlobPatterns(t *testing.T) {
	wf := &types.Workflow{
		Name: "globs",
		On: types.Triggers{
			Push: &types.BranchFilter{Branches: []string{"release/**", "main"}},
		},
		Jobs: map[string]types.Job{},
	}

	assert.True(t, Matches(wf, types.TriggerEvent{Kind: types.EventPush, Branch: "main"}))
	assert.True(t, Matches(wf, types.TriggerEvent{Kind: types.EventPush, Branch: "release/1.2"}))
	assert.False(t, Matches(wf, types.TriggerEvent{Kind: types.EventPush, Branch: "hotfix/1.2"}))
}

func TestMatchesNoPullRequestTrigger(t *testing.T) {
	wf := &types.Workflow{
		Name: "push-only",
		On:   types.Triggers{Push: &types.BranchFilter{}},
	}

	assert.True(t, Matches(wf, types.TriggerEvent{Kind: types.EventPush, Branch: "anything"}))
	assert.False(t, Matches(wf, types.TriggerEvent{Kind: types.EventPullRequest, Branch: "anything"}))
}
