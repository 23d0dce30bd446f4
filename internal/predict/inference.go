package predict

import (
	"fmt"

	"github.com/anabrs1/TELMA-CS/internal/extract"
	"github.com/anabrs1/TELMA-CS/internal/geo"
	"github.com/anabrs1/TELMA-CS/internal/monitoring"
	"github.com/anabrs1/TELMA-CS/internal/tablestore"
	"github.com/anabrs1/TELMA-CS/internal/validate"
)

// Inference streams a stored sparse table through a scorer batch by
// batch and scatters the scores into a dense raster. Only one batch of
// coordinates, features, and scores is resident at a time; the output
// grid is bounded by the template.
type Inference struct {
	Scorer    Scorer
	BatchSize int
	// Excluded are columns withheld from the feature matrix; nil means
	// DefaultExcludedColumns.
	Excluded []string
	// LabelColumn, when set and present with a Collector, accumulates
	// (score, label) pairs for validation.
	LabelColumn string
	Collector   *validate.Collector
}

// Run scores every stored row and returns the reconstructed raster. A
// batch-level failure, whether from the store or the scorer, aborts the
// loop: a partially scored surface would be misleading.
func (inf *Inference) Run(store *tablestore.File, template *geo.Layer) (*geo.Layer, error) {
	excluded := inf.Excluded
	if excluded == nil {
		excluded = DefaultExcludedColumns
	}
	var names []string
	for _, c := range store.Columns() {
		names = append(names, c.Name)
	}
	featureCols := FeatureColumns(names, excluded)
	if len(featureCols) == 0 {
		return nil, fmt.Errorf("no feature columns remain after exclusions")
	}

	grid, err := NewDenseGrid(template)
	if err != nil {
		return nil, err
	}

	it := store.Batches(inf.BatchSize)
	defer it.Close()
	batches := 0
	for it.Next() {
		b := it.Batch()
		if err := inf.scoreBatch(b, featureCols, grid); err != nil {
			return nil, fmt.Errorf("batch %d: %w", batches, err)
		}
		batches++
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	monitoring.Logf("scored %d batches: %d cells written, %d rows outside template extent",
		batches, grid.Applied(), grid.Dropped())
	return grid.Layer(), nil
}

func (inf *Inference) scoreBatch(b *extract.Table, featureCols []string, grid *DenseGrid) error {
	features, err := featureMatrix(b, featureCols)
	if err != nil {
		return err
	}
	scores, err := inf.Scorer.Score(features)
	if err != nil {
		return fmt.Errorf("scorer failed: %w", err)
	}
	if len(scores) != b.Rows() {
		return fmt.Errorf("scorer returned %d scores for %d rows", len(scores), b.Rows())
	}

	xc, ok := b.Column(extract.XCoordColumn)
	if !ok {
		return fmt.Errorf("batch missing %s column", extract.XCoordColumn)
	}
	yc, ok := b.Column(extract.YCoordColumn)
	if !ok {
		return fmt.Errorf("batch missing %s column", extract.YCoordColumn)
	}
	if err := grid.Apply(xc.Ints, yc.Ints, scores); err != nil {
		return err
	}

	if inf.Collector != nil && inf.LabelColumn != "" {
		if lc, ok := b.Column(inf.LabelColumn); ok && lc.Kind == geo.Int32 {
			inf.Collector.Add(scores, lc.Ints)
		}
	}
	return nil
}
