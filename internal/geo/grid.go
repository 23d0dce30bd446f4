package geo

import (
	"fmt"
	"math"
)

// CoordinateGrid holds integral cell-centre coordinates for a layer
// grid: X indexed by column, Y indexed by row. Because centres are a
// pure function of the geotransform, any two layers sharing a transform
// produce identical grids, which is what makes sparse rows joinable
// back to pixels.
type CoordinateGrid struct {
	X []int32
	Y []int32
}

// BuildCoordinateGrid derives the cell-centre axes of a reference
// layer. Zero resolution or a zero-sized grid is a precondition
// failure.
func BuildCoordinateGrid(ref *Layer) (*CoordinateGrid, error) {
	if err := ref.Transform.Validate(); err != nil {
		return nil, err
	}
	if ref.Width <= 0 || ref.Height <= 0 {
		return nil, fmt.Errorf("cannot build coordinate grid for zero-sized layer %s (%dx%d)",
			ref.Name, ref.Width, ref.Height)
	}
	g := &CoordinateGrid{
		X: make([]int32, ref.Width),
		Y: make([]int32, ref.Height),
	}
	t := ref.Transform
	for c := 0; c < ref.Width; c++ {
		g.X[c] = int32(math.Round(t.OriginX + (float64(c)+0.5)*t.XRes))
	}
	for r := 0; r < ref.Height; r++ {
		g.Y[r] = int32(math.Round(t.OriginY + (float64(r)+0.5)*t.YRes))
	}
	return g, nil
}
