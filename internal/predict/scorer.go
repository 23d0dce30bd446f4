// Package predict drives the inverse half of the pipeline: streaming
// stored observation batches through an external scorer and scattering
// the per-row scores back into a dense raster surface.
package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anabrs1/TELMA-CS/internal/extract"
)

// Scorer is the external classifier capability: one probability-like
// scalar per feature row. Training internals are out of scope; the
// pipeline only ever calls this.
type Scorer interface {
	Score(features [][]float64) ([]float64, error)
}

// DefaultExcludedColumns are the identity and label columns never fed
// to the scorer as features.
var DefaultExcludedColumns = []string{
	extract.XCoordColumn, extract.YCoordColumn,
	"land_use_06", "land_use_12", "land_use_18",
	"transition_06_12", "transition_12_18",
}

// FeatureColumns returns the column names used as scorer features:
// everything not in the excluded set, in table order.
func FeatureColumns(cols []string, excluded []string) []string {
	skip := make(map[string]bool, len(excluded))
	for _, e := range excluded {
		skip[e] = true
	}
	var out []string
	for _, c := range cols {
		if !skip[c] {
			out = append(out, c)
		}
	}
	return out
}

// featureMatrix assembles the rows x features matrix for one batch.
func featureMatrix(t *extract.Table, featureCols []string) ([][]float64, error) {
	cols := make([]*extract.Column, len(featureCols))
	for i, name := range featureCols {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("feature column %s not in batch", name)
		}
		cols[i] = c
	}
	m := make([][]float64, t.Rows())
	for r := range m {
		row := make([]float64, len(cols))
		for i, c := range cols {
			row[i] = c.Value(r)
		}
		m[r] = row
	}
	return m, nil
}

// RESTScorer calls a remote scoring service over HTTP. One request per
// batch: a JSON feature matrix in, one probability per row out.
type RESTScorer struct {
	Endpoint string
	Client   *http.Client
}

// NewRESTScorer creates a scorer client for the given endpoint.
func NewRESTScorer(endpoint string) *RESTScorer {
	return &RESTScorer{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type scoreRequest struct {
	Features [][]float64 `json:"features"`
}

type scoreResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// Score implements Scorer.
func (s *RESTScorer) Score(features [][]float64) ([]float64, error) {
	body, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring service returned status %d", resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode score response: %w", err)
	}
	if len(out.Probabilities) != len(features) {
		return nil, fmt.Errorf("scoring service returned %d probabilities for %d rows",
			len(out.Probabilities), len(features))
	}
	return out.Probabilities, nil
}
