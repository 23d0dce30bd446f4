// Package extract turns stacks of co-registered raster layers into the
// sparse observation table: mask construction, value gathering, and the
// cropland transition filter.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anabrs1/TELMA-CS/internal/geo"
	"github.com/anabrs1/TELMA-CS/internal/monitoring"
)

// LandMaskName is the layer name designating the explicit land/sea
// mask. The mask layer is recommended but optional: without it the
// observation mask starts all-true and is narrowed by nodata checks
// only.
const LandMaskName = "land_mask"

// IsCovariateLayer reports whether a layer participates in the nodata
// intersection by role: land-use and transition layers do, auxiliary
// layers do not.
func IsCovariateLayer(name string) bool {
	return strings.Contains(name, "land_use") || strings.Contains(name, "transition")
}

// Mask is the boolean observation mask over the common pixel grid.
// Built once per run and read-only afterwards.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// Count returns the number of mask-true pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// sortedNames returns layer names in deterministic order.
func sortedNames(layers map[string]*geo.Layer) []string {
	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildMask combines per-layer validity into one observation mask. The
// land/sea mask layer, when present, seeds the mask with value==1;
// every land-use and transition layer then intersects with value !=
// that layer's nodata. A pixel survives only if valid in every
// contributing layer.
func BuildMask(layers map[string]*geo.Layer) (*Mask, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("no layers supplied for mask construction")
	}
	all := make([]*geo.Layer, 0, len(layers))
	for _, name := range sortedNames(layers) {
		all = append(all, layers[name])
	}
	if err := geo.AlignCheck(all); err != nil {
		return nil, fmt.Errorf("mask precondition: %w", err)
	}

	ref := all[0]
	m := &Mask{Width: ref.Width, Height: ref.Height, Bits: make([]bool, ref.Pixels())}

	if lm, ok := layers[LandMaskName]; ok {
		for i := range m.Bits {
			m.Bits[i] = lm.Value(i) == 1
		}
	} else {
		monitoring.Logf("warning: no %s layer supplied; mask narrowed by nodata checks only", LandMaskName)
		for i := range m.Bits {
			m.Bits[i] = true
		}
	}

	for _, name := range sortedNames(layers) {
		if !IsCovariateLayer(name) {
			continue
		}
		l := layers[name]
		for i := range m.Bits {
			if m.Bits[i] && l.IsNoData(i) {
				m.Bits[i] = false
			}
		}
	}
	return m, nil
}
