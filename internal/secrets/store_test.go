package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoped(t *testing.T) {
	s := NewStore()
	s.Set("INDEX_TOKEN", "pypi-abc")
	s.Set("COVERAGE_TOKEN", "cov-xyz")

	scoped, err := s.Scoped([]string{"INDEX_TOKEN"})
	require.NoError(t, err)

	// Only the requested secret is visible to the job.
	assert.Equal(t, map[string]string{"INDEX_TOKEN": "pypi-abc"}, scoped)
}

func TestScopedMissing(t *testing.T) {
	s := NewStore()

	_, err := s.Scoped([]string{"GH_TOKEN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GH_TOKEN")
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"INDEX_TOKEN", "from-env")
	t.Setenv("UNRELATED", "ignored")

	s := FromEnv()

	v, ok := s.Get("INDEX_TOKEN")
	require.True(t, ok)
	assert.Equal(t, "from-env", v)

	_, ok = s.Get("UNRELATED")
	assert.False(t, ok)
}
