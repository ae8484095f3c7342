package release

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEntry(t *testing.T) {
	date := time.Date(2021, 4, 2, 0, 0, 0, 0, time.UTC)
	commits := []ConventionalCommit{
		{SHA: "abcdef1234", Type: "feat", Scope: "client", Description: "add timed steam command"},
		{SHA: "1234567890", Type: "fix", Description: "handle empty status payload"},
		{SHA: "fedcba4321", Type: "feat", Description: "drop python 3.6", Breaking: true},
		{SHA: "0000000000", Type: "chore", Description: "bump dev deps"},
	}

	entry := RenderEntry(Version{1, 0, 0}, date, commits)

	assert.Contains(t, entry, "## v1.0.0 (2021-04-02)")
	assert.Contains(t, entry, "### Breaking Changes")
	assert.Contains(t, entry, "### Features")
	assert.Contains(t, entry, "### Bug Fixes")
	assert.Contains(t, entry, "**client**: add timed steam command (abcdef1)")
	assert.Contains(t, entry, "handle empty status payload (1234567)")
	// chore commits never show up
	assert.NotContains(t, entry, "bump dev deps")
}

func TestUpdateChangelogCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")

	previous, err := UpdateChangelog(path, "## v0.1.0 (2021-01-01)\n\n- first release (abc1234)\n")
	require.NoError(t, err)
	assert.Nil(t, previous)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Changelog")
	assert.Contains(t, string(data), "## v0.1.0")
}

func TestUpdateChangelogPrepends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	seed := "# Changelog\n\n## v0.1.0 (2021-01-01)\n\n- first release (abc1234)\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	previous, err := UpdateChangelog(path, "## v0.2.0 (2021-02-01)\n\n- second release (def5678)\n")
	require.NoError(t, err)
	assert.Equal(t, seed, string(previous))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	// Newest entry sits above the old one.
	newIdx := strings.Index(content, "## v0.2.0")
	oldIdx := strings.Index(content, "## v0.1.0")
	require.NotEqual(t, -1, newIdx)
	require.NotEqual(t, -1, oldIdx)
	assert.Less(t, newIdx, oldIdx)
}

func TestRestoreFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CHANGELOG.md")

	// Restoring nil removes a file created during the failed release.
	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))
	require.NoError(t, RestoreFile(path, nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Restoring previous bytes brings the old content back.
	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))
	require.NoError(t, RestoreFile(path, []byte("old")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}
