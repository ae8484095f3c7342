package coverage

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates coverage percentages across matrix cells.
type Summary struct {
	Cells  int     `json:"cells"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// Aggregate computes the combined coverage picture of a matrix job.
// Cells without a coverage figure are excluded.
func Aggregate(percents []float64) Summary {
	if len(percents) == 0 {
		return Summary{}
	}

	min, max := percents[0], percents[0]
	for _, p := range percents[1:] {
		min = math.Min(min, p)
		max = math.Max(max, p)
	}

	summary := Summary{
		Cells: len(percents),
		Mean:  stat.Mean(percents, nil),
		Min:   min,
		Max:   max,
	}
	if len(percents) > 1 {
		summary.StdDev = stat.StdDev(percents, nil)
	}
	return summary
}
