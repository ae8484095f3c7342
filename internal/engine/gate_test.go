package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conveyorci/conveyor/internal/types"
)

func TestEvalGate(t *testing.T) {
	passed := map[string]types.Outcome{
		"lint": types.Success(),
		"test": types.Success(),
	}

	tests := []struct {
		name    string
		gate    *types.Gate
		branch  string
		results map[string]types.Outcome
		want    bool
		reason  string
	}{
		{
			name: "nil gate always holds",
			want: true,
		},
		{
			name:   "branch match",
			gate:   &types.Gate{Branch: "main"},
			branch: "main",
			want:   true,
		},
		{
			name:   "branch mismatch",
			gate:   &types.Gate{Branch: "main"},
			branch: "feature/x",
			want:   false,
			reason: "does not match",
		},
		{
			name:   "branch glob",
			gate:   &types.Gate{Branch: "release/*"},
			branch: "release/v2",
			want:   true,
		},
		{
			name:    "all required succeeded",
			gate:    &types.Gate{Require: []string{"lint", "test"}},
			results: passed,
			want:    true,
		},
		{
			name: "required job failed",
			gate: &types.Gate{Require: []string{"lint", "test"}},
			results: map[string]types.Outcome{
				"lint": types.Success(),
				"test": types.Failure("3 failed"),
			},
			want:   false,
			reason: "test was failure",
		},
		{
			name: "required job skipped",
			gate: &types.Gate{Require: []string{"docs"}},
			results: map[string]types.Outcome{
				"docs": types.Skipped("branch"),
			},
			want:   false,
			reason: "docs was skipped",
		},
		{
			name:    "required job missing",
			gate:    &types.Gate{Require: []string{"docs"}},
			results: passed,
			want:    false,
			reason:  "did not run",
		},
		{
			name:    "branch and require both hold",
			gate:    &types.Gate{Branch: "main", Require: []string{"lint"}},
			branch:  "main",
			results: passed,
			want:    true,
		},
		{
			name:    "branch holds but require fails",
			gate:    &types.Gate{Branch: "main", Require: []string{"deploy"}},
			branch:  "main",
			results: passed,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := EvalGate(tt.gate, tt.branch, tt.results)
			assert.Equal(t, tt.want, ok)
			if tt.reason != "" {
				assert.Contains(t, reason, tt.reason)
			}
		})
	}
}
