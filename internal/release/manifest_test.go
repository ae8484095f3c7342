package release

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poetryManifest = `[tool.poetry]
name = "aiosteamist"
version = "0.3.1"
description = "Async steamist client"

[tool.poetry.dependencies]
python = "^3.7"
`

const pep621Manifest = `[project]
name = "aiosteamist"
version = "1.0.0"

[build-system]
requires = ["poetry-core"]
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pyproject.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadManifestPoetry(t *testing.T) {
	path := writeManifest(t, poetryManifest)

	name, version, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "aiosteamist", name)
	assert.Equal(t, Version{0, 3, 1}, version)
}

func TestReadManifestPEP621(t *testing.T) {
	path := writeManifest(t, pep621Manifest)

	name, version, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "aiosteamist", name)
	assert.Equal(t, Version{1, 0, 0}, version)
}

func TestReadManifestNoVersion(t *testing.T) {
	path := writeManifest(t, "[tool.black]\nline-length = 88\n")

	_, _, err := ReadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no version")
}

func TestSetManifestVersion(t *testing.T) {
	path := writeManifest(t, poetryManifest)

	previous, err := SetManifestVersion(path, Version{0, 4, 0})
	require.NoError(t, err)
	assert.Equal(t, poetryManifest, string(previous))

	name, version, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "aiosteamist", name)
	assert.Equal(t, Version{0, 4, 0}, version)

	// Unrelated tables survive the rewrite.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "poetry.dependencies")
	assert.Contains(t, string(data), "python")
}

func TestSetManifestVersionRestore(t *testing.T) {
	path := writeManifest(t, poetryManifest)

	previous, err := SetManifestVersion(path, Version{9, 9, 9})
	require.NoError(t, err)

	require.NoError(t, RestoreFile(path, previous))
	_, version, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, Version{0, 3, 1}, version)
}
