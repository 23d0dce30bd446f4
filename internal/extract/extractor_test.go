package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anabrs1/TELMA-CS/internal/geo"
)

func buildMaskAt(pixels ...[2]int) *Mask {
	m := &Mask{Width: 4, Height: 4, Bits: make([]bool, 16)}
	for _, p := range pixels {
		m.Bits[p[0]*4+p[1]] = true
	}
	return m
}

func TestExtract(t *testing.T) {
	t.Parallel()

	lu := intLayer("land_use_12", []int32{
		111, 112, 121, 211,
		212, 213, 221, 222,
		231, 241, 242, 243,
		311, 312, 313, 324,
	}, 999)
	slope := geo.NewFloatLayer("slope", 4, 4, testTransform, -9999)
	for i := range slope.Floats {
		slope.Floats[i] = float32(i) / 10
	}

	mask := buildMaskAt([2]int{0, 0}, [2]int{0, 1}, [2]int{2, 3})
	grid, err := geo.BuildCoordinateGrid(lu)
	require.NoError(t, err)

	tab, err := Extract(map[string]*geo.Layer{"land_use_12": lu, "slope": slope}, mask, grid)
	require.NoError(t, err)

	assert.Equal(t, 3, tab.Rows())
	assert.Equal(t, []string{"xcoord", "ycoord", "land_use_12", "slope"}, tab.ColumnNames())

	x, _ := tab.Column("xcoord")
	y, _ := tab.Column("ycoord")
	code, _ := tab.Column("land_use_12")
	sl, _ := tab.Column("slope")

	assert.Equal(t, []int32{111, 112, 243}, code.Ints)
	assert.Equal(t, []float32{0, 0.1, 1.1}, sl.Floats)

	// Row alignment: converting each row's coordinates back through the
	// template transform must land on the pixel that produced the
	// layer values of the same row.
	for i := 0; i < tab.Rows(); i++ {
		row, col := testTransform.RowCol(float64(x.Ints[i]), float64(y.Ints[i]))
		idx := lu.Idx(row, col)
		assert.Equal(t, lu.Ints[idx], code.Ints[i], "row %d", i)
		assert.Equal(t, slope.Floats[idx], sl.Floats[i], "row %d", i)
	}
}

func TestExtractShapeMismatch(t *testing.T) {
	t.Parallel()

	lu := intLayer("land_use_12", make([]int32, 16), 999)
	grid, err := geo.BuildCoordinateGrid(lu)
	require.NoError(t, err)

	badMask := &Mask{Width: 3, Height: 3, Bits: make([]bool, 9)}
	_, err = Extract(map[string]*geo.Layer{"land_use_12": lu}, badMask, grid)
	assert.Error(t, err)
}

func TestExtractEmptyMask(t *testing.T) {
	t.Parallel()

	lu := intLayer("land_use_12", make([]int32, 16), 999)
	grid, err := geo.BuildCoordinateGrid(lu)
	require.NoError(t, err)

	tab, err := Extract(map[string]*geo.Layer{"land_use_12": lu}, buildMaskAt(), grid)
	require.NoError(t, err)
	assert.Equal(t, 0, tab.Rows())
	assert.Equal(t, 3, tab.NumColumns())
}
