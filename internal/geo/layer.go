package geo

import (
	"fmt"
	"math"
)

// Kind is the element type of a layer. Land-cover codes and transition
// codes are Int32; probability surfaces are Float32.
type Kind uint8

const (
	Int32 Kind = iota
	Float32
)

func (k Kind) String() string {
	switch k {
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// DefaultNoData returns the conventional nodata sentinel for a kind.
func DefaultNoData(k Kind) float64 {
	if k == Int32 {
		return -2147483648
	}
	return -9999
}

// Layer is a single-band raster held in memory: a flat row-major sample
// grid plus the georeferencing needed to place it. Exactly one of Ints
// or Floats is populated, selected by Kind, so integer codes are never
// routed through a lossy float conversion.
type Layer struct {
	Name      string
	Width     int
	Height    int
	Transform GeoTransform
	NoData    float64
	Kind      Kind
	Ints      []int32
	Floats    []float32
}

// NewIntLayer allocates an Int32 layer with every cell set to nodata.
func NewIntLayer(name string, width, height int, tr GeoTransform, nodata float64) *Layer {
	l := &Layer{
		Name: name, Width: width, Height: height,
		Transform: tr, NoData: nodata, Kind: Int32,
		Ints: make([]int32, width*height),
	}
	nd := int32(nodata)
	for i := range l.Ints {
		l.Ints[i] = nd
	}
	return l
}

// NewFloatLayer allocates a Float32 layer with every cell set to nodata.
func NewFloatLayer(name string, width, height int, tr GeoTransform, nodata float64) *Layer {
	l := &Layer{
		Name: name, Width: width, Height: height,
		Transform: tr, NoData: nodata, Kind: Float32,
		Floats: make([]float32, width*height),
	}
	nd := float32(nodata)
	for i := range l.Floats {
		l.Floats[i] = nd
	}
	return l
}

// Idx returns the flat index of pixel (row, col).
func (l *Layer) Idx(row, col int) int { return row*l.Width + col }

// Pixels returns the total cell count.
func (l *Layer) Pixels() int { return l.Width * l.Height }

// Value returns the sample at a flat index as float64.
func (l *Layer) Value(idx int) float64 {
	if l.Kind == Int32 {
		return float64(l.Ints[idx])
	}
	return float64(l.Floats[idx])
}

// SetValue writes a sample at a flat index in the layer's native kind.
func (l *Layer) SetValue(idx int, v float64) {
	if l.Kind == Int32 {
		l.Ints[idx] = int32(math.Round(v))
		return
	}
	l.Floats[idx] = float32(v)
}

// IsNoData reports whether the sample at a flat index equals the
// layer's nodata sentinel.
func (l *Layer) IsNoData(idx int) bool {
	if l.Kind == Int32 {
		return l.Ints[idx] == int32(l.NoData)
	}
	return l.Floats[idx] == float32(l.NoData)
}

// Template returns an empty layer with this layer's shape and transform
// but the given name, kind, and nodata. Reconstruction uses it to build
// a probability surface georeferenced like an input layer.
func (l *Layer) Template(name string, kind Kind, nodata float64) *Layer {
	if kind == Int32 {
		return NewIntLayer(name, l.Width, l.Height, l.Transform, nodata)
	}
	return NewFloatLayer(name, l.Width, l.Height, l.Transform, nodata)
}

// AlignCheck enforces the alignment invariant: every layer used in one
// run must share the same shape and geotransform. Violations fail the
// run; there is no resampling fallback.
func AlignCheck(layers []*Layer) error {
	if len(layers) == 0 {
		return fmt.Errorf("no layers to align")
	}
	ref := layers[0]
	if err := ref.Transform.Validate(); err != nil {
		return err
	}
	if ref.Width <= 0 || ref.Height <= 0 {
		return fmt.Errorf("layer %s has zero-sized grid %dx%d", ref.Name, ref.Width, ref.Height)
	}
	for _, l := range layers[1:] {
		if l.Width != ref.Width || l.Height != ref.Height {
			return fmt.Errorf("layer %s shape %dx%d does not match %s %dx%d",
				l.Name, l.Width, l.Height, ref.Name, ref.Width, ref.Height)
		}
		if !l.Transform.Equal(ref.Transform) {
			return fmt.Errorf("layer %s geotransform %v does not match %s %v",
				l.Name, l.Transform, ref.Name, ref.Transform)
		}
	}
	return nil
}
