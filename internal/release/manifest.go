package release

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Manifest is the subset of a pyproject-style TOML manifest the
// release stage reads and rewrites.
type Manifest struct {
	Project *ProjectTable `toml:"project,omitempty"`
	Tool    *ToolTable    `toml:"tool,omitempty"`
}

// ProjectTable is the PEP 621 [project] table.
type ProjectTable struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ToolTable carries the [tool.poetry] table.
type ToolTable struct {
	Poetry *PoetryTable `toml:"poetry,omitempty"`
}

// PoetryTable is the legacy poetry metadata table.
type PoetryTable struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ReadManifest loads the package name and current version from a TOML
// manifest, preferring [project] over [tool.poetry].
func ReadManifest(path string) (name string, version Version, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Version{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return "", Version{}, fmt.Errorf("failed to parse manifest: %w", err)
	}

	var raw string
	switch {
	case m.Project != nil && m.Project.Version != "":
		name, raw = m.Project.Name, m.Project.Version
	case m.Tool != nil && m.Tool.Poetry != nil && m.Tool.Poetry.Version != "":
		name, raw = m.Tool.Poetry.Name, m.Tool.Poetry.Version
	default:
		return "", Version{}, fmt.Errorf("manifest %s declares no version", path)
	}

	version, err = ParseVersion(raw)
	if err != nil {
		return "", Version{}, err
	}
	return name, version, nil
}

// SetManifestVersion rewrites the embedded version string, preserving
// every other key. It returns the previous file content so a failed
// release can restore it.
func SetManifestVersion(path string, version Version) ([]byte, error) {
	previous, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	// Decode into a generic tree so unrelated tables survive the
	// round trip.
	var tree map[string]any
	if err := toml.Unmarshal(previous, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	updated := false
	if project, ok := tree["project"].(map[string]any); ok {
		if _, has := project["version"]; has {
			project["version"] = version.String()
			updated = true
		}
	}
	if tool, ok := tree["tool"].(map[string]any); ok {
		if poetry, ok := tool["poetry"].(map[string]any); ok {
			if _, has := poetry["version"]; has {
				poetry["version"] = version.String()
				updated = true
			}
		}
	}
	if !updated {
		return nil, fmt.Errorf("manifest %s declares no version", path)
	}

	data, err := toml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return previous, nil
}
