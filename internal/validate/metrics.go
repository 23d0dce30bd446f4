// Package validate computes model validation metrics over collected
// (score, label) pairs: ROC AUC and the Boyce index.
package validate

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/anabrs1/TELMA-CS/internal/fsutil"
)

// Collector accumulates scores and binary labels during inference.
// Positive decides the label from a transition code.
type Collector struct {
	Positive func(code int32) bool
	Scores   []float64
	Labels   []bool
}

// Add records one batch of scores with their transition codes.
func (c *Collector) Add(scores []float64, codes []int32) {
	c.Scores = append(c.Scores, scores...)
	for _, code := range codes {
		c.Labels = append(c.Labels, c.Positive(code))
	}
}

// Metrics is the per-class validation summary serialised alongside the
// probability map.
type Metrics struct {
	RocAuc     float64 `json:"roc_auc"`
	BoyceIndex float64 `json:"boyce_index"`
}

// MarshalJSON writes undefined metrics as null; encoding/json rejects
// NaN outright.
func (m Metrics) MarshalJSON() ([]byte, error) {
	enc := func(v float64) interface{} {
		if math.IsNaN(v) {
			return nil
		}
		return v
	}
	return json.Marshal(map[string]interface{}{
		"roc_auc":     enc(m.RocAuc),
		"boyce_index": enc(m.BoyceIndex),
	})
}

// Compute derives the metrics from collected pairs. NaN is reported
// when a metric is undefined (single-class labels, too few windows).
func Compute(c *Collector) Metrics {
	return Metrics{
		RocAuc:     round3(AUC(c.Scores, c.Labels)),
		BoyceIndex: round3(BoyceIndex(c.Scores, positives(c))),
	}
}

func positives(c *Collector) []float64 {
	var obs []float64
	for i, l := range c.Labels {
		if l {
			obs = append(obs, c.Scores[i])
		}
	}
	return obs
}

func round3(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*1000) / 1000
}

// AUC returns the area under the ROC curve for scores against binary
// labels, NaN when only one class is present.
func AUC(scores []float64, labels []bool) float64 {
	if len(scores) == 0 || len(scores) != len(labels) {
		return math.NaN()
	}
	pos := 0
	for _, l := range labels {
		if l {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return math.NaN()
	}

	// stat.ROC wants scores ascending with classes aligned.
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	y := make([]float64, len(scores))
	classes := make([]bool, len(scores))
	for i, j := range idx {
		y[i] = scores[j]
		classes[i] = labels[j]
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// boyceClasses is the number of moving windows used when deriving the
// predicted/expected curve (Hirzel et al. 2006).
const boyceClasses = 10

// BoyceIndex correlates the predicted/expected ratio of positive
// observations against habitat-suitability rank. fit is every score
// produced by the model; obs the scores at observed positives. Returns
// NaN when fewer than two valid windows exist.
func BoyceIndex(fit, obs []float64) float64 {
	if len(fit) == 0 || len(obs) == 0 {
		return math.NaN()
	}
	lo, hi := fit[0], fit[0]
	for _, v := range fit {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return math.NaN()
	}
	w := (hi - lo) / boyceClasses

	inWindow := func(vals []float64, a, b float64) float64 {
		n := 0
		for _, v := range vals {
			if v >= a && v < b {
				n++
			}
		}
		return float64(n)
	}

	var ranks, f []float64
	for i := 0; i < boyceClasses-1; i++ {
		a := lo + float64(i)*w
		b := a + w
		ei := inWindow(fit, a, b) / float64(len(fit))
		if ei == 0 {
			continue
		}
		pi := inWindow(obs, a, b) / float64(len(obs))
		ranks = append(ranks, float64(len(f)))
		f = append(f, pi/ei)
	}
	if len(f) < 2 {
		return math.NaN()
	}
	return stat.Correlation(ranks, f, nil)
}

// WriteJSON persists per-class metrics as an indented JSON document.
func WriteJSON(path string, metrics map[int]Metrics) error {
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
