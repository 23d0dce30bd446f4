package extract

import (
	"fmt"

	"github.com/anabrs1/TELMA-CS/internal/geo"
	"github.com/anabrs1/TELMA-CS/internal/monitoring"
)

// Coordinate column names. xcoord and ycoord are kept as int32 so the
// inverse scatter lookup during reconstruction is exact.
const (
	XCoordColumn = "xcoord"
	YCoordColumn = "ycoord"
)

// Extract gathers every layer's values at mask-true pixels into the
// sparse table. All columns, coordinates included, are gathered in the
// mask's row-major order from a single shared iteration, which is what
// guarantees cross-column row alignment. Layer columns follow the two
// coordinate columns in sorted name order.
func Extract(layers map[string]*geo.Layer, mask *Mask, grid *geo.CoordinateGrid) (*Table, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("no layers to extract")
	}
	names := sortedNames(layers)
	ref := layers[names[0]]
	if mask.Width != ref.Width || mask.Height != ref.Height {
		return nil, fmt.Errorf("mask shape %dx%d does not match layer grid %dx%d",
			mask.Width, mask.Height, ref.Width, ref.Height)
	}
	if len(grid.X) != mask.Width || len(grid.Y) != mask.Height {
		return nil, fmt.Errorf("coordinate grid (%dx%d) does not match mask (%dx%d)",
			len(grid.X), len(grid.Y), mask.Width, mask.Height)
	}

	n := mask.Count()
	t := NewTable(n)

	xs := make([]int32, 0, n)
	ys := make([]int32, 0, n)
	for r := 0; r < mask.Height; r++ {
		for c := 0; c < mask.Width; c++ {
			if mask.Bits[r*mask.Width+c] {
				xs = append(xs, grid.X[c])
				ys = append(ys, grid.Y[r])
			}
		}
	}
	if err := t.AddIntColumn(XCoordColumn, xs); err != nil {
		return nil, err
	}
	if err := t.AddIntColumn(YCoordColumn, ys); err != nil {
		return nil, err
	}

	for _, name := range names {
		l := layers[name]
		if l.Kind == geo.Int32 {
			vals := make([]int32, 0, n)
			for i, b := range mask.Bits {
				if b {
					vals = append(vals, l.Ints[i])
				}
			}
			if err := t.AddIntColumn(name, vals); err != nil {
				return nil, err
			}
		} else {
			vals := make([]float32, 0, n)
			for i, b := range mask.Bits {
				if b {
					vals = append(vals, l.Floats[i])
				}
			}
			if err := t.AddFloatColumn(name, vals); err != nil {
				return nil, err
			}
		}
	}

	monitoring.Logf("extracted %d observations across %d columns", n, t.NumColumns())
	return t, nil
}
