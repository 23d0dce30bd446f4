package predict

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anabrs1/TELMA-CS/internal/extract"
	"github.com/anabrs1/TELMA-CS/internal/geo"
	"github.com/anabrs1/TELMA-CS/internal/tablestore"
	"github.com/anabrs1/TELMA-CS/internal/validate"
)

// stubScorer echoes its first feature, optionally failing after a
// number of calls.
type stubScorer struct {
	calls    int
	failFrom int
	features [][]float64
}

func (s *stubScorer) Score(features [][]float64) ([]float64, error) {
	s.calls++
	if s.failFrom > 0 && s.calls >= s.failFrom {
		return nil, errors.New("model unavailable")
	}
	s.features = append(s.features, features...)
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = f[0]
	}
	return out, nil
}

func writeObservations(t *testing.T) string {
	t.Helper()
	tab := extract.NewTable(3)
	xs := make([]int32, 3)
	ys := make([]int32, 3)
	for i, p := range [][2]int{{0, 0}, {0, 1}, {2, 3}} {
		x, y := testTransform.CellCenter(p[0], p[1])
		xs[i] = int32(x)
		ys[i] = int32(y)
	}
	require.NoError(t, tab.AddIntColumn("xcoord", xs))
	require.NoError(t, tab.AddIntColumn("ycoord", ys))
	require.NoError(t, tab.AddIntColumn("transition_12_18", []int32{13, 12, 153}))
	require.NoError(t, tab.AddFloatColumn("slope", []float32{0.25, 0.5, 0.75}))

	path := filepath.Join(t.TempDir(), "observations.parquet")
	require.NoError(t, tablestore.Write(path, tab))
	return path
}

func TestInferenceRun(t *testing.T) {
	path := writeObservations(t)
	store, err := tablestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	scorer := &stubScorer{}
	inf := &Inference{Scorer: scorer, BatchSize: 2}
	template := geo.NewFloatLayer("probability_map_3", 4, 4, testTransform, -9999)

	out, err := inf.Run(store, template)
	require.NoError(t, err)

	// Only the slope column survives the default exclusions.
	require.NotEmpty(t, scorer.features)
	assert.Len(t, scorer.features[0], 1)

	assert.InDelta(t, 0.25, out.Value(out.Idx(0, 0)), 1e-6)
	assert.InDelta(t, 0.5, out.Value(out.Idx(0, 1)), 1e-6)
	assert.InDelta(t, 0.75, out.Value(out.Idx(2, 3)), 1e-6)
	assert.True(t, out.IsNoData(out.Idx(1, 1)), "unmasked pixel stays nodata")
}

func TestInferenceCollectsLabels(t *testing.T) {
	path := writeObservations(t)
	store, err := tablestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	coll := &validate.Collector{Positive: func(code int32) bool { return code%10 == 3 }}
	inf := &Inference{
		Scorer:      &stubScorer{},
		BatchSize:   2,
		LabelColumn: "transition_12_18",
		Collector:   coll,
	}
	_, err = inf.Run(store, geo.NewFloatLayer("p", 4, 4, testTransform, -9999))
	require.NoError(t, err)

	assert.Equal(t, []float64{0.25, 0.5, 0.75}, coll.Scores)
	assert.Equal(t, []bool{true, false, true}, coll.Labels)
}

func TestInferenceScorerErrorAborts(t *testing.T) {
	path := writeObservations(t)
	store, err := tablestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	inf := &Inference{Scorer: &stubScorer{failFrom: 1}, BatchSize: 2}
	_, err = inf.Run(store, geo.NewFloatLayer("p", 4, 4, testTransform, -9999))
	assert.ErrorContains(t, err, "model unavailable")
}

func TestInferenceNoFeatureColumns(t *testing.T) {
	path := writeObservations(t)
	store, err := tablestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	inf := &Inference{
		Scorer:    &stubScorer{},
		BatchSize: 2,
		Excluded:  []string{"xcoord", "ycoord", "transition_12_18", "slope"},
	}
	_, err = inf.Run(store, geo.NewFloatLayer("p", 4, 4, testTransform, -9999))
	assert.ErrorContains(t, err, "no feature columns")
}
