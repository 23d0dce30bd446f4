package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anabrs1/TELMA-CS/internal/config"
	"github.com/anabrs1/TELMA-CS/internal/fsutil"
	"github.com/anabrs1/TELMA-CS/internal/geo"
	"github.com/anabrs1/TELMA-CS/internal/landuse"
	"github.com/anabrs1/TELMA-CS/internal/predict"
	"github.com/anabrs1/TELMA-CS/internal/tablestore"
)

var testTransform = geo.GeoTransform{OriginX: 4500000, XRes: 100, OriginY: 2700000, YRes: -100}

// firstFeatureScorer echoes the first feature of every row, so the
// reconstructed surface can be checked against a known input layer.
type firstFeatureScorer struct{}

func (firstFeatureScorer) Score(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = f[0]
	}
	return out, nil
}

// writeInputStack builds a 4x4 synthetic raster stack:
//   - land_mask excludes pixel 15,
//   - land_use_12 is nodata at pixel 14,
//   - transition_12_18 cycles cropland and non-cropland codes,
//   - slope is the flat pixel index / 10.
//
// With the cropland filter on, the surviving rows are the masked pixels
// whose transition code is 211 or 13 (indices 0,2,4,6,8,10,12).
func writeInputStack(t *testing.T, dir string) {
	t.Helper()

	mask := geo.NewIntLayer("land_mask", 4, 4, testTransform, 999)
	lu := geo.NewIntLayer("land_use_12", 4, 4, testTransform, 999)
	tr := geo.NewIntLayer("transition_12_18", 4, 4, testTransform, 999)
	slope := geo.NewFloatLayer("slope", 4, 4, testTransform, -9999)

	codes := []int32{211, 12, 13, 231}
	for i := 0; i < 16; i++ {
		mask.Ints[i] = 1
		lu.Ints[i] = 211
		tr.Ints[i] = codes[i%4]
		slope.Floats[i] = float32(i) / 10
	}
	mask.Ints[15] = 0
	lu.Ints[14] = 999

	for _, l := range []*geo.Layer{mask, lu, tr, slope} {
		require.NoError(t, geo.WriteLayer(filepath.Join(dir, l.Name+".nc"), l))
	}
}

func testConfig(t *testing.T) *config.PipelineConfig {
	t.Helper()
	cfg := config.Default()
	cfg.InputDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	cfg.FocusCroplandTransitions = true
	cfg.BatchSize = 3
	cfg.ExcludedCovariates = append([]string{"land_mask"}, predict.DefaultExcludedColumns...)
	writeInputStack(t, cfg.InputDir)
	return cfg
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cfg.RegistryPath = filepath.Join(t.TempDir(), "runs.db")

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	tablePath, err := p.RunExtraction()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, TableFileName), tablePath)

	f, err := tablestore.Open(tablePath)
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.NumRows())
	var names []string
	for _, c := range f.Columns() {
		names = append(names, c.Name)
	}
	assert.Equal(t,
		[]string{"xcoord", "ycoord", "land_mask", "land_use_12", "slope", "transition_12_18"},
		names)
	require.NoError(t, f.Close())

	outPath, err := p.RunPrediction(firstFeatureScorer{}, tablePath,
		filepath.Join(cfg.InputDir, "land_use_12.nc"), landuse.ClassArable)
	require.NoError(t, err)

	surface, err := geo.ReadLayer(outPath)
	require.NoError(t, err)
	assert.Equal(t, geo.Float32, surface.Kind)
	assert.Equal(t, 4, surface.Width)
	assert.Equal(t, 4, surface.Height)

	// The scorer echoed the slope covariate, so surviving pixels carry
	// their slope value and everything else stays nodata.
	for i := 0; i < 16; i++ {
		if i <= 13 && i%2 == 0 {
			assert.InDelta(t, float64(i)/10, surface.Value(i), 1e-6, "pixel %d", i)
		} else {
			assert.True(t, surface.IsNoData(i), "pixel %d", i)
		}
	}

	// Labels mix both classes, so validation metrics were written.
	assert.True(t, fsutil.Exists(filepath.Join(cfg.OutputDir, "validation_metrics.json")))

	runs, err := p.Registry.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "predict", runs[0].Kind)
	assert.Equal(t, "ok", runs[0].Status)
	assert.Equal(t, "extract", runs[1].Kind)
	assert.Equal(t, int64(7), runs[1].Rows)
	assert.Equal(t, int64(14), runs[1].MaskPixels)
}

func TestExtractionWithoutFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.FocusCroplandTransitions = false

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	tablePath, err := p.RunExtraction()
	require.NoError(t, err)

	f, err := tablestore.Open(tablePath)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(14), f.NumRows(), "every masked pixel survives")
}

func TestExtractionMissingTransitionColumn(t *testing.T) {
	cfg := testConfig(t)
	cfg.TransitionColumn = "transition_06_12"

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.RunExtraction()
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, TableFileName))
}

func TestExtractionEmptyInputDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputDir = t.TempDir()

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.RunExtraction()
	assert.Error(t, err)
}

func TestPredictionFailureRecorded(t *testing.T) {
	cfg := testConfig(t)
	cfg.RegistryPath = filepath.Join(t.TempDir(), "runs.db")

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	tablePath, err := p.RunExtraction()
	require.NoError(t, err)

	// An unreadable template aborts prediction but still records the run.
	_, err = p.RunPrediction(firstFeatureScorer{}, tablePath,
		filepath.Join(cfg.InputDir, "absent.nc"), landuse.ClassArable)
	require.Error(t, err)

	runs, perr := p.Registry.Runs(10)
	require.NoError(t, perr)
	require.Len(t, runs, 2)
	assert.Equal(t, "failed", runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestOutputDirCreated(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(cfg.OutputDir, "nested", "out")

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.RunExtraction()
	require.NoError(t, err)
	info, err := os.Stat(cfg.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
