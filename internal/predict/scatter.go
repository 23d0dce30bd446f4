package predict

import (
	"fmt"

	"github.com/anabrs1/TELMA-CS/internal/geo"
)

// DenseGrid accumulates scattered values into a raster sized and
// georeferenced like a template layer. Every cell starts at nodata;
// the grid is the only large structure resident during reconstruction
// and its size is fixed by the template.
type DenseGrid struct {
	out     *geo.Layer
	applied int64
	dropped int64
}

// NewDenseGrid allocates the output grid from a template: the
// template's shape, transform, element kind, and nodata, every cell
// initialised to nodata.
func NewDenseGrid(template *geo.Layer) (*DenseGrid, error) {
	if err := template.Transform.Validate(); err != nil {
		return nil, err
	}
	if template.Width <= 0 || template.Height <= 0 {
		return nil, fmt.Errorf("template %s has a zero-sized grid", template.Name)
	}
	return &DenseGrid{
		out: template.Template(template.Name, template.Kind, template.NoData),
	}, nil
}

// Apply scatters one batch of (x, y, value) rows into the grid.
// Coordinates are converted to pixel indices through the template's
// inverse transform. Rows landing outside the grid are expected at
// extent edges and silently dropped; colliding rows resolve
// last-write-wins in batch order.
func (g *DenseGrid) Apply(xs, ys []int32, vals []float64) error {
	if len(xs) != len(ys) || len(xs) != len(vals) {
		return fmt.Errorf("scatter batch columns disagree: %d/%d/%d rows",
			len(xs), len(ys), len(vals))
	}
	for i := range xs {
		row, col := g.out.Transform.RowCol(float64(xs[i]), float64(ys[i]))
		if row < 0 || row >= g.out.Height || col < 0 || col >= g.out.Width {
			g.dropped++
			continue
		}
		g.out.SetValue(g.out.Idx(row, col), vals[i])
		g.applied++
	}
	return nil
}

// Layer returns the reconstructed raster.
func (g *DenseGrid) Layer() *geo.Layer { return g.out }

// Applied returns the number of rows written into the grid.
func (g *DenseGrid) Applied() int64 { return g.applied }

// Dropped returns the number of out-of-bounds rows discarded.
func (g *DenseGrid) Dropped() int64 { return g.dropped }
