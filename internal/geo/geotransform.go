// Package geo holds the in-memory raster model: the affine geotransform,
// single-band layers, the alignment invariant, cell-centre coordinate
// grids, and NetCDF file I/O.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrRotatedTransform is returned when a geotransform carries rotation
// terms. The pipeline assumes axis-aligned, north-up grids.
var ErrRotatedTransform = errors.New("geotransform has rotation terms")

// GeoTransform maps pixel (row, col) to planar (x, y) in the GDAL
// six-coefficient convention with the rotation terms fixed at zero.
// YRes is negative for north-up grids.
type GeoTransform struct {
	OriginX float64
	OriginY float64
	XRes    float64
	YRes    float64
}

// FromSix builds a GeoTransform from a GDAL-style six-element affine.
// Non-zero rotation terms are a precondition failure.
func FromSix(gt [6]float64) (GeoTransform, error) {
	if gt[2] != 0 || gt[4] != 0 {
		return GeoTransform{}, ErrRotatedTransform
	}
	return GeoTransform{OriginX: gt[0], XRes: gt[1], OriginY: gt[3], YRes: gt[5]}, nil
}

// Six returns the transform as a GDAL-style six-element affine.
func (t GeoTransform) Six() [6]float64 {
	return [6]float64{t.OriginX, t.XRes, 0, t.OriginY, 0, t.YRes}
}

// Equal reports whether two transforms are identical.
func (t GeoTransform) Equal(o GeoTransform) bool {
	return t == o
}

// CellCenter returns the planar coordinates of the centre of pixel
// (row, col).
func (t GeoTransform) CellCenter(row, col int) (x, y float64) {
	x = t.OriginX + (float64(col)+0.5)*t.XRes
	y = t.OriginY + (float64(row)+0.5)*t.YRes
	return x, y
}

// RowCol inverts the transform, returning the pixel containing (x, y).
// The result may be outside the grid; callers doing scatter writes are
// expected to bounds-check and drop.
func (t GeoTransform) RowCol(x, y float64) (row, col int) {
	col = int(math.Floor((x - t.OriginX) / t.XRes))
	row = int(math.Floor((y - t.OriginY) / t.YRes))
	return row, col
}

// Validate reports a precondition failure for degenerate resolutions.
func (t GeoTransform) Validate() error {
	if t.XRes == 0 || t.YRes == 0 {
		return fmt.Errorf("degenerate geotransform: xres=%g yres=%g", t.XRes, t.YRes)
	}
	return nil
}
