package extract

import (
	"errors"
	"fmt"

	"github.com/anabrs1/TELMA-CS/internal/geo"
	"github.com/anabrs1/TELMA-CS/internal/landuse"
	"github.com/anabrs1/TELMA-CS/internal/monitoring"
)

// ErrMissingTransitionColumn is returned when filtering is requested
// but the configured transition-code column is not in the table.
// Silently returning the unfiltered table would corrupt the scope of
// every downstream step, so this is an explicit error rather than a
// fallthrough.
var ErrMissingTransitionColumn = errors.New("transition column not present in table")

// TransitionFilter subsets a sparse table to cropland transitions.
// When not enabled, Apply is the identity.
type TransitionFilter struct {
	Crosswalk *landuse.Crosswalk
	// Column names the transition-code column, e.g. "transition_12_18".
	Column  string
	Enabled bool
}

// Apply returns the row subset where the transition code is a cropland
// transition, every column co-filtered identically. Applying the filter
// to its own output yields the same table.
func (f *TransitionFilter) Apply(t *Table) (*Table, error) {
	if !f.Enabled {
		return t, nil
	}
	col, ok := t.Column(f.Column)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTransitionColumn, f.Column)
	}
	if col.Kind != geo.Int32 {
		return nil, fmt.Errorf("transition column %s is %s, want int32", f.Column, col.Kind)
	}
	keep := make([]bool, t.Rows())
	for i, code := range col.Ints {
		keep[i] = f.Crosswalk.IsCroplandTransition(int(code))
	}
	out, err := t.Select(keep)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("transition filter kept %d of %d observations", out.Rows(), t.Rows())
	return out, nil
}
