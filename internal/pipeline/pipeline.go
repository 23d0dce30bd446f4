// Package pipeline wires the pipeline stages end to end: raster stack
// to sparse table (extraction) and sparse table to probability surface
// (prediction).
package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/anabrs1/TELMA-CS/internal/config"
	"github.com/anabrs1/TELMA-CS/internal/extract"
	"github.com/anabrs1/TELMA-CS/internal/fsutil"
	"github.com/anabrs1/TELMA-CS/internal/geo"
	"github.com/anabrs1/TELMA-CS/internal/landuse"
	"github.com/anabrs1/TELMA-CS/internal/monitoring"
	"github.com/anabrs1/TELMA-CS/internal/predict"
	"github.com/anabrs1/TELMA-CS/internal/rundb"
	"github.com/anabrs1/TELMA-CS/internal/tablestore"
	"github.com/anabrs1/TELMA-CS/internal/validate"
)

// TableFileName is the sparse table written by extraction runs.
const TableFileName = "processed_data.parquet"

// Pipeline binds configuration, the crosswalk, and the optional run
// registry.
type Pipeline struct {
	Config    *config.PipelineConfig
	Crosswalk *landuse.Crosswalk
	Registry  *rundb.DB
}

// New builds a pipeline with the default crosswalk, opening the run
// registry when configured.
func New(cfg *config.PipelineConfig) (*Pipeline, error) {
	p := &Pipeline{Config: cfg, Crosswalk: landuse.Default()}
	if cfg.RegistryPath != "" {
		reg, err := rundb.Open(cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
		p.Registry = reg
	}
	return p, nil
}

// Close releases the run registry handle, if open.
func (p *Pipeline) Close() error {
	if p.Registry != nil {
		return p.Registry.Close()
	}
	return nil
}

// referenceLayer picks the template layer for the run: first by sorted
// name, matching the deterministic layer ordering used everywhere else.
func referenceLayer(layers map[string]*geo.Layer) *geo.Layer {
	names := make([]string, 0, len(layers))
	for n := range layers {
		names = append(names, n)
	}
	sort.Strings(names)
	return layers[names[0]]
}

// RunExtraction loads the input raster stack, builds the observation
// mask and coordinate grid, extracts the sparse table, optionally
// filters it to cropland transitions, and persists it. Returns the
// table path. Validation failures abort before anything is written.
func (p *Pipeline) RunExtraction() (string, error) {
	var runID string
	if p.Registry != nil {
		id, err := p.Registry.StartRun("extract")
		if err != nil {
			return "", err
		}
		runID = id
	}
	path, rows, maskPixels, err := p.runExtraction()
	if p.Registry != nil {
		if ferr := p.Registry.FinishRun(runID, rows, maskPixels, path, err); ferr != nil {
			monitoring.Logf("warning: failed to record run outcome: %v", ferr)
		}
	}
	return path, err
}

func (p *Pipeline) runExtraction() (string, int64, int64, error) {
	cfg := p.Config
	layers, err := geo.LoadDir(cfg.InputDir)
	if err != nil {
		return "", 0, 0, err
	}
	if len(layers) == 0 {
		return "", 0, 0, fmt.Errorf("no rasters found in %s", cfg.InputDir)
	}

	mask, err := extract.BuildMask(layers)
	if err != nil {
		return "", 0, 0, err
	}
	maskPixels := int64(mask.Count())
	monitoring.Logf("valid observations: %d", maskPixels)

	grid, err := geo.BuildCoordinateGrid(referenceLayer(layers))
	if err != nil {
		return "", 0, 0, err
	}

	table, err := extract.Extract(layers, mask, grid)
	if err != nil {
		return "", 0, 0, err
	}

	filter := &extract.TransitionFilter{
		Crosswalk: p.Crosswalk,
		Column:    cfg.TransitionColumn,
		Enabled:   cfg.FocusCroplandTransitions,
	}
	table, err = filter.Apply(table)
	if err != nil {
		return "", 0, 0, err
	}

	if err := fsutil.EnsureDir(cfg.OutputDir); err != nil {
		return "", 0, 0, err
	}
	path := filepath.Join(cfg.OutputDir, TableFileName)
	if err := tablestore.Write(path, table); err != nil {
		return "", 0, 0, err
	}
	monitoring.Logf("saved sparse table to %s (%d rows)", path, table.Rows())
	return path, int64(table.Rows()), maskPixels, nil
}

// RunPrediction streams the stored table through the scorer and writes
// the probability surface for the class of interest, plus validation
// metrics when the transition column is available for labelling.
// templatePath names the raster supplying the output georeferencing.
func (p *Pipeline) RunPrediction(scorer predict.Scorer, tablePath, templatePath string, class int) (string, error) {
	var runID string
	if p.Registry != nil {
		id, err := p.Registry.StartRun("predict")
		if err != nil {
			return "", err
		}
		runID = id
	}
	path, rows, metrics, err := p.runPrediction(scorer, tablePath, templatePath, class)
	if p.Registry != nil {
		if ferr := p.Registry.FinishRun(runID, rows, 0, path, err); ferr != nil {
			monitoring.Logf("warning: failed to record run outcome: %v", ferr)
		}
		if err == nil && metrics != nil {
			if merr := p.Registry.RecordMetrics(runID, class, *metrics); merr != nil {
				monitoring.Logf("warning: failed to record metrics: %v", merr)
			}
		}
	}
	return path, err
}

func (p *Pipeline) runPrediction(scorer predict.Scorer, tablePath, templatePath string, class int) (string, int64, *validate.Metrics, error) {
	cfg := p.Config

	template, err := geo.ReadLayer(templatePath)
	if err != nil {
		return "", 0, nil, err
	}
	// Probability surfaces are float32 regardless of the template's
	// band type; the template supplies shape and georeferencing only.
	outName := fmt.Sprintf("probability_map_%d", class)
	probTemplate := template.Template(outName, geo.Float32, geo.DefaultNoData(geo.Float32))

	store, err := tablestore.Open(tablePath)
	if err != nil {
		return "", 0, nil, err
	}
	defer store.Close()

	collector := &validate.Collector{
		Positive: func(code int32) bool {
			return p.Crosswalk.ClassOf(int(code)) == class
		},
	}
	inf := &predict.Inference{
		Scorer:      scorer,
		BatchSize:   cfg.BatchSize,
		Excluded:    cfg.ExcludedCovariates,
		LabelColumn: cfg.TransitionColumn,
		Collector:   collector,
	}

	surface, err := inf.Run(store, probTemplate)
	if err != nil {
		return "", 0, nil, err
	}

	if err := fsutil.EnsureDir(cfg.OutputDir); err != nil {
		return "", 0, nil, err
	}
	outPath := filepath.Join(cfg.OutputDir, outName+".nc")
	if err := geo.WriteLayer(outPath, surface); err != nil {
		return "", 0, nil, err
	}
	monitoring.Logf("probability map saved to %s", outPath)

	var metrics *validate.Metrics
	if len(collector.Scores) > 0 {
		m := validate.Compute(collector)
		metrics = &m
		mPath := filepath.Join(cfg.OutputDir, "validation_metrics.json")
		if err := validate.WriteJSON(mPath, map[int]validate.Metrics{class: m}); err != nil {
			monitoring.Logf("warning: failed to write validation metrics: %v", err)
		} else {
			monitoring.Logf("validation metrics for class %d (%s): %+v",
				class, p.Crosswalk.ClassName(class), m)
		}
	}

	return outPath, store.NumRows(), metrics, nil
}
