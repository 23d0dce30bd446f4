package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTransform = GeoTransform{OriginX: 4500000, XRes: 100, OriginY: 2700000, YRes: -100}

func TestLayerValues(t *testing.T) {
	t.Parallel()

	t.Run("int layer keeps codes exact", func(t *testing.T) {
		l := NewIntLayer("land_use_12", 3, 2, testTransform, 999)
		assert.True(t, l.IsNoData(0))
		l.Ints[l.Idx(1, 2)] = 324
		assert.Equal(t, 324.0, l.Value(l.Idx(1, 2)))
		assert.False(t, l.IsNoData(l.Idx(1, 2)))
	})

	t.Run("float layer", func(t *testing.T) {
		l := NewFloatLayer("probability", 2, 2, testTransform, -9999)
		l.SetValue(3, 0.25)
		assert.InDelta(t, 0.25, l.Value(3), 1e-9)
		assert.True(t, l.IsNoData(0))
	})

	t.Run("template inherits shape and transform", func(t *testing.T) {
		l := NewIntLayer("land_use_12", 4, 3, testTransform, 999)
		tpl := l.Template("probability_map_3", Float32, -9999)
		assert.Equal(t, l.Width, tpl.Width)
		assert.Equal(t, l.Height, tpl.Height)
		assert.Equal(t, l.Transform, tpl.Transform)
		assert.Equal(t, Float32, tpl.Kind)
		assert.True(t, tpl.IsNoData(0))
	})
}

func TestAlignCheck(t *testing.T) {
	t.Parallel()

	a := NewIntLayer("a", 4, 4, testTransform, 999)
	b := NewIntLayer("b", 4, 4, testTransform, 999)
	require.NoError(t, AlignCheck([]*Layer{a, b}))

	t.Run("shape mismatch", func(t *testing.T) {
		c := NewIntLayer("c", 5, 4, testTransform, 999)
		err := AlignCheck([]*Layer{a, c})
		assert.ErrorContains(t, err, "shape")
	})

	t.Run("transform mismatch", func(t *testing.T) {
		other := testTransform
		other.OriginX += 50
		c := NewIntLayer("c", 4, 4, other, 999)
		err := AlignCheck([]*Layer{a, c})
		assert.ErrorContains(t, err, "geotransform")
	})

	t.Run("empty set", func(t *testing.T) {
		assert.Error(t, AlignCheck(nil))
	})
}
