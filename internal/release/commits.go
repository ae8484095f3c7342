package release

import (
	"regexp"
	"strings"

	"github.com/conveyorci/conveyor/internal/git"
)

// Level is the magnitude of a version bump decided from commit history.
type Level int

const (
	LevelNone Level = iota
	LevelPatch
	LevelMinor
	LevelMajor
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelPatch:
		return "patch"
	case LevelMinor:
		return "minor"
	case LevelMajor:
		return "major"
	default:
		return "none"
	}
}

// conventional commit subject: type(scope)!: description
var subjectRe = regexp.MustCompile(`^(\w+)(\(([^)]*)\))?(!)?:\s*(.+)$`)

// ConventionalCommit is a parsed commit-message convention entry.
type ConventionalCommit struct {
	SHA         string
	Type        string
	Scope       string
	Description string
	Breaking    bool
}

// ParseCommit parses a commit into the conventional form. Commits that
// do not follow the convention are returned with an empty Type and
// never influence the bump decision.
func ParseCommit(c git.Commit) ConventionalCommit {
	parsed := ConventionalCommit{SHA: c.SHA, Description: c.Subject}

	m := subjectRe.FindStringSubmatch(c.Subject)
	if m == nil {
		return parsed
	}

	parsed.Type = strings.ToLower(m[1])
	parsed.Scope = m[3]
	parsed.Description = m[5]
	parsed.Breaking = m[4] == "!" || strings.Contains(c.Body, "BREAKING CHANGE")
	return parsed
}

// Analyze parses commit history and decides the bump level: breaking
// changes force major, feat minor, fix and perf patch. Anything else
// does not warrant a release.
func Analyze(commits []git.Commit) ([]ConventionalCommit, Level) {
	level := LevelNone
	parsed := make([]ConventionalCommit, 0, len(commits))

	for _, c := range commits {
		cc := ParseCommit(c)
		parsed = append(parsed, cc)

		switch {
		case cc.Breaking:
			level = LevelMajor
		case cc.Type == "feat" && level < LevelMinor:
			level = LevelMinor
		case (cc.Type == "fix" || cc.Type == "perf") && level < LevelPatch:
			level = LevelPatch
		}
	}
	return parsed, level
}
