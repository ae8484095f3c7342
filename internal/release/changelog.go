package release

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const changelogHeader = "# Changelog"

var sectionTitles = map[string]string{
	"feat": "Features",
	"fix":  "Bug Fixes",
	"perf": "Performance",
}

// RenderEntry renders one changelog entry for a version from its
// conventional commits, grouped by change type.
func RenderEntry(version Version, date time.Time, commits []ConventionalCommit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## v%s (%s)\n", version, date.Format("2006-01-02"))

	sections := make(map[string][]ConventionalCommit)
	var breaking []ConventionalCommit
	for _, c := range commits {
		if c.Breaking {
			breaking = append(breaking, c)
		}
		if _, ok := sectionTitles[c.Type]; ok {
			sections[c.Type] = append(sections[c.Type], c)
		}
	}

	if len(breaking) > 0 {
		b.WriteString("\n### Breaking Changes\n\n")
		for _, c := range breaking {
			writeItem(&b, c)
		}
	}

	order := make([]string, 0, len(sections))
	for typ := range sections {
		order = append(order, typ)
	}
	sort.Strings(order)

	for _, typ := range order {
		fmt.Fprintf(&b, "\n### %s\n\n", sectionTitles[typ])
		for _, c := range sections[typ] {
			writeItem(&b, c)
		}
	}
	return b.String()
}

func writeItem(b *strings.Builder, c ConventionalCommit) {
	short := c.SHA
	if len(short) > 7 {
		short = short[:7]
	}
	if c.Scope != "" {
		fmt.Fprintf(b, "- **%s**: %s (%s)\n", c.Scope, c.Description, short)
	} else {
		fmt.Fprintf(b, "- %s (%s)\n", c.Description, short)
	}
}

// UpdateChangelog prepends an entry under the changelog header,
// creating the file when absent. It returns the previous content so a
// failed release can restore it.
func UpdateChangelog(path, entry string) ([]byte, error) {
	previous, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read changelog: %w", err)
	}

	existing := strings.TrimPrefix(string(previous), changelogHeader)
	existing = strings.TrimLeft(existing, "\n")

	var b strings.Builder
	b.WriteString(changelogHeader)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimRight(entry, "\n"))
	b.WriteString("\n")
	if existing != "" {
		b.WriteString("\n")
		b.WriteString(existing)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write changelog: %w", err)
	}
	return previous, nil
}

// RestoreFile writes previous content back, removing the file if it did
// not exist before.
func RestoreFile(path string, previous []byte) error {
	if previous == nil {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(path, previous, 0o644)
}
