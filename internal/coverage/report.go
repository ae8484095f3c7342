// Package coverage parses coverage reports produced by test cells and
// ships them to the external coverage service.
package coverage

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

// Report is the subset of a coverage.py JSON report the orchestrator
// consumes.
type Report struct {
	Totals Totals                 `json:"totals"`
	Files  map[string]FileSummary `json:"files,omitempty"`
}

// Totals carries aggregate line coverage.
type Totals struct {
	PercentCovered float64 `json:"percent_covered"`
	CoveredLines   int     `json:"covered_lines"`
	NumStatements  int     `json:"num_statements"`
	MissingLines   int     `json:"missing_lines"`
}

// FileSummary carries per-file coverage.
type FileSummary struct {
	Summary Totals `json:"summary"`
}

// Parse decodes a coverage.py JSON report.
func Parse(data []byte) (*Report, error) {
	var report Report
	if err := sonic.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse coverage report: %w", err)
	}
	return &report, nil
}

// ParseFile reads and decodes a coverage report from disk.
func ParseFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage report %s: %w", path, err)
	}
	return Parse(data)
}
