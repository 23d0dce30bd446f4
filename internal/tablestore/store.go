// Package tablestore persists the sparse observation table as Parquet:
// columnar, compressed, and batch-iterable, so scoring and
// reconstruction can stream tables far larger than memory.
package tablestore

import (
	"fmt"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/anabrs1/TELMA-CS/internal/extract"
	"github.com/anabrs1/TELMA-CS/internal/fsutil"
	"github.com/anabrs1/TELMA-CS/internal/geo"
)

// DefaultBatchSize is the row count of one streamed batch.
const DefaultBatchSize = 10000

// columnOrderKey stores the table's logical column order in the file
// metadata. Parquet sorts group fields by name; the original order is
// restored from this key so column ordering round-trips exactly.
const columnOrderKey = "telma.column.order"

// writeChunkRows bounds the rows materialised per WriteRows call.
const writeChunkRows = 8192

func leafNode(kind geo.Kind) parquet.Node {
	if kind == geo.Int32 {
		// Land-cover and transition codes draw from a small closed set;
		// dictionary encoding keeps the columns compact.
		return parquet.Encoded(parquet.Leaf(parquet.Int32Type), &parquet.RLEDictionary)
	}
	return parquet.Leaf(parquet.FloatType)
}

// Write serialises a sparse table to path. The write is atomic: data
// goes to a temporary sibling which is renamed into place only after a
// successful close, so a failure leaves no partial file.
func Write(path string, t *extract.Table) error {
	if t.NumColumns() == 0 {
		return fmt.Errorf("refusing to write table with no columns")
	}
	group := parquet.Group{}
	for i := 0; i < t.NumColumns(); i++ {
		c := t.ColumnAt(i)
		group[c.Name] = leafNode(c.Kind)
	}
	schema := parquet.NewSchema("observations", group)

	// Parquet leaf order is the schema's sorted field order; map each
	// leaf back to its source column once.
	fields := schema.Fields()
	srcs := make([]*extract.Column, len(fields))
	for i, f := range fields {
		c, ok := t.Column(f.Name())
		if !ok {
			return fmt.Errorf("schema field %s has no source column", f.Name())
		}
		srcs[i] = c
	}

	tmp := fsutil.TempSibling(path)
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create table file %s: %w", path, err)
	}
	w := parquet.NewWriter(f, schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(columnOrderKey, strings.Join(t.ColumnNames(), ",")),
	)

	fail := func(err error) error {
		w.Close()
		f.Close()
		fsutil.Discard(tmp)
		return err
	}

	rows := make([]parquet.Row, 0, writeChunkRows)
	for start := 0; start < t.Rows(); start += writeChunkRows {
		end := start + writeChunkRows
		if end > t.Rows() {
			end = t.Rows()
		}
		rows = rows[:0]
		for r := start; r < end; r++ {
			row := make(parquet.Row, len(srcs))
			for col, src := range srcs {
				var v parquet.Value
				if src.Kind == geo.Int32 {
					v = parquet.Int32Value(src.Ints[r])
				} else {
					v = parquet.FloatValue(src.Floats[r])
				}
				row[col] = v.Level(0, 0, col)
			}
			rows = append(rows, row)
		}
		if _, err := w.WriteRows(rows); err != nil {
			return fail(fmt.Errorf("failed to write rows to %s: %w", path, err))
		}
	}

	if err := w.Close(); err != nil {
		f.Close()
		fsutil.Discard(tmp)
		return fmt.Errorf("failed to finalise table %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		fsutil.Discard(tmp)
		return fmt.Errorf("failed to close table %s: %w", path, err)
	}
	return fsutil.Promote(tmp, path)
}
