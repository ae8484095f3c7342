// Package release implements the semantic release procedure: commit
// analysis, version bump, changelog, tag, release record, and package
// publication, sequenced as a saga with compensations.
package release

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses "1.2.3" or "v1.2.3".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String renders the bare version, e.g. "1.2.3".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Tag renders the version as a tag name, e.g. "v1.2.3".
func (v Version) Tag() string {
	return "v" + v.String()
}

// Bump returns the version raised by the given level. BumpNone returns
// the version unchanged.
func (v Version) Bump(level Level) Version {
	switch level {
	case LevelMajor:
		return Version{Major: v.Major + 1}
	case LevelMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	case LevelPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return v
	}
}
