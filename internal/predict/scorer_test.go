package predict

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureColumns(t *testing.T) {
	t.Parallel()

	cols := []string{"xcoord", "ycoord", "land_use_12", "transition_12_18", "slope", "elevation"}
	got := FeatureColumns(cols, DefaultExcludedColumns)
	assert.Equal(t, []string{"slope", "elevation"}, got)

	t.Run("custom exclusions", func(t *testing.T) {
		got := FeatureColumns(cols, []string{"xcoord", "ycoord"})
		assert.Equal(t, []string{"land_use_12", "transition_12_18", "slope", "elevation"}, got)
	})
}

func TestRESTScorer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		probs := make([]float64, len(req.Features))
		for i, f := range req.Features {
			probs[i] = f[0] / 10 // deterministic echo of the first feature
		}
		json.NewEncoder(w).Encode(scoreResponse{Probabilities: probs})
	}))
	defer srv.Close()

	s := NewRESTScorer(srv.URL)
	got, err := s.Score([][]float64{{1, 0}, {5, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got[0], 1e-9)
	assert.InDelta(t, 0.5, got[1], 1e-9)
}

func TestRESTScorerErrors(t *testing.T) {
	t.Parallel()

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewRESTScorer(srv.URL).Score([][]float64{{1}})
		assert.ErrorContains(t, err, "status 503")
	})

	t.Run("row count mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(scoreResponse{Probabilities: []float64{0.5}})
		}))
		defer srv.Close()

		_, err := NewRESTScorer(srv.URL).Score([][]float64{{1}, {2}})
		assert.ErrorContains(t, err, "2 rows")
	})
}
