package workflow

import (
	"sort"

	"github.com/conveyorci/conveyor/internal/types"
)

// ExpandMatrix returns the Cartesian product of the matrix axes as an
// ordered list of cells. Axes are expanded in lexicographic axis-name
// order so the result is deterministic.
func ExpandMatrix(m *types.Matrix) []types.MatrixCell {
	if m == nil || len(m.Axes) == 0 {
		return nil
	}

	axes := make([]string, 0, len(m.Axes))
	for axis := range m.Axes {
		axes = append(axes, axis)
	}
	sort.Strings(axes)

	cells := []types.MatrixCell{{}}
	for _, axis := range axes {
		values := m.Axes[axis]
		next := make([]types.MatrixCell, 0, len(cells)*len(values))
		for _, cell := range cells {
			for _, value := range values {
				expanded := make(types.MatrixCell, len(cell)+1)
				for k, v := range cell {
					expanded[k] = v
				}
				expanded[axis] = value
				next = append(next, expanded)
			}
		}
		cells = next
	}
	return cells
}
