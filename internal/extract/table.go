package extract

import (
	"fmt"

	"github.com/anabrs1/TELMA-CS/internal/geo"
)

// Column is one named parallel array of the sparse table, carried in
// its native kind so integer codes are never routed through floats.
type Column struct {
	Name   string
	Kind   geo.Kind
	Ints   []int32
	Floats []float32
}

// Len returns the column's row count.
func (c *Column) Len() int {
	if c.Kind == geo.Int32 {
		return len(c.Ints)
	}
	return len(c.Floats)
}

// Value returns row i as float64; feature assembly for scoring uses it.
func (c *Column) Value(i int) float64 {
	if c.Kind == geo.Int32 {
		return float64(c.Ints[i])
	}
	return float64(c.Floats[i])
}

// Table is the sparse observation table: a fixed-order collection of
// equal-length parallel columns. Row i across all columns refers to the
// same source pixel; the equal-length invariant is enforced at every
// mutation point so callers cannot desynchronise columns.
type Table struct {
	cols []Column
	rows int
}

// NewTable creates an empty table expecting the given row count.
func NewTable(rows int) *Table {
	return &Table{rows: rows}
}

// Rows returns the table's row count.
func (t *Table) Rows() int { return t.rows }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.cols) }

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false if absent.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.cols {
		if t.cols[i].Name == name {
			return &t.cols[i], true
		}
	}
	return nil, false
}

// ColumnAt returns the column at index i in table order.
func (t *Table) ColumnAt(i int) *Column { return &t.cols[i] }

func (t *Table) addColumn(c Column) error {
	if c.Len() != t.rows {
		return fmt.Errorf("column %s has %d rows, table has %d", c.Name, c.Len(), t.rows)
	}
	if _, exists := t.Column(c.Name); exists {
		return fmt.Errorf("duplicate column %s", c.Name)
	}
	t.cols = append(t.cols, c)
	return nil
}

// AddIntColumn appends an int32 column. The length must match the
// table's row count.
func (t *Table) AddIntColumn(name string, vals []int32) error {
	return t.addColumn(Column{Name: name, Kind: geo.Int32, Ints: vals})
}

// AddFloatColumn appends a float32 column. The length must match the
// table's row count.
func (t *Table) AddFloatColumn(name string, vals []float32) error {
	return t.addColumn(Column{Name: name, Kind: geo.Float32, Floats: vals})
}

// Select returns a new table holding the rows where keep is true, every
// column co-filtered identically so cross-column alignment survives.
func (t *Table) Select(keep []bool) (*Table, error) {
	if len(keep) != t.rows {
		return nil, fmt.Errorf("selection mask has %d rows, table has %d", len(keep), t.rows)
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := NewTable(n)
	for _, c := range t.cols {
		if c.Kind == geo.Int32 {
			vals := make([]int32, 0, n)
			for i, k := range keep {
				if k {
					vals = append(vals, c.Ints[i])
				}
			}
			if err := out.AddIntColumn(c.Name, vals); err != nil {
				return nil, err
			}
		} else {
			vals := make([]float32, 0, n)
			for i, k := range keep {
				if k {
					vals = append(vals, c.Floats[i])
				}
			}
			if err := out.AddFloatColumn(c.Name, vals); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
