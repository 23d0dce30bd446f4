package tablestore

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/anabrs1/TELMA-CS/internal/extract"
	"github.com/anabrs1/TELMA-CS/internal/geo"
)

// ColumnInfo describes one column of a stored table.
type ColumnInfo struct {
	Name string
	Kind geo.Kind
}

// File is an open sparse table. It supports a full-table load and
// bounded-memory batched iteration; only one batch's columns are
// resident at a time.
type File struct {
	f  *os.File
	pf *parquet.File
	// cols is the logical column order; leafOf maps a parquet leaf
	// index to a position in cols.
	cols   []ColumnInfo
	leafOf []int
}

// Open opens a table written by Write.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("corrupt table file %s: %w", path, err)
	}

	fields := pf.Schema().Fields()
	byName := make(map[string]int, len(fields))
	kinds := make([]geo.Kind, len(fields))
	for i, fld := range fields {
		switch fld.Type().Kind() {
		case parquet.Int32:
			kinds[i] = geo.Int32
		case parquet.Float:
			kinds[i] = geo.Float32
		default:
			f.Close()
			return nil, fmt.Errorf("table %s: unsupported column type for %s", path, fld.Name())
		}
		byName[fld.Name()] = i
	}

	// Logical order from file metadata, falling back to schema order
	// for files written by other tools.
	order := make([]string, 0, len(fields))
	for _, kv := range pf.Metadata().KeyValueMetadata {
		if kv.Key == columnOrderKey {
			order = strings.Split(kv.Value, ",")
		}
	}
	if len(order) == 0 {
		for _, fld := range fields {
			order = append(order, fld.Name())
		}
	}
	if len(order) != len(fields) {
		f.Close()
		return nil, fmt.Errorf("table %s: column order metadata lists %d columns, schema has %d",
			path, len(order), len(fields))
	}

	tf := &File{f: f, pf: pf, leafOf: make([]int, len(fields))}
	for pos, name := range order {
		leaf, ok := byName[name]
		if !ok {
			f.Close()
			return nil, fmt.Errorf("table %s: ordered column %s not in schema", path, name)
		}
		tf.cols = append(tf.cols, ColumnInfo{Name: name, Kind: kinds[leaf]})
		tf.leafOf[leaf] = pos
	}
	return tf, nil
}

// Close releases the underlying file handle.
func (tf *File) Close() error { return tf.f.Close() }

// NumRows returns the stored row count.
func (tf *File) NumRows() int64 { return tf.pf.NumRows() }

// Columns returns the table's columns in logical order.
func (tf *File) Columns() []ColumnInfo { return tf.cols }

// ReadAll materialises the whole table. Use Batches for anything that
// might not fit in memory.
func (tf *File) ReadAll() (*extract.Table, error) {
	it := tf.Batches(DefaultBatchSize)
	defer it.Close()

	bufs := newColBufs(tf.cols)
	for it.Next() {
		b := it.Batch()
		for i, ci := range tf.cols {
			c, _ := b.Column(ci.Name)
			if ci.Kind == geo.Int32 {
				bufs[i].ints = append(bufs[i].ints, c.Ints...)
			} else {
				bufs[i].floats = append(bufs[i].floats, c.Floats...)
			}
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return tableFromBufs(tf.cols, bufs)
}

// Batches returns an iterator over successive row batches of the given
// size (DefaultBatchSize if size <= 0). Batches are yielded in the
// table's persisted row order.
func (tf *File) Batches(size int) *BatchIter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchIter{
		file:   tf,
		groups: tf.pf.RowGroups(),
		buf:    make([]parquet.Row, size),
	}
}

// BatchIter streams fixed-size row batches. Each batch is materialised
// independently; resident memory is O(batch size x column count).
type BatchIter struct {
	file   *File
	groups []parquet.RowGroup
	gi     int
	rows   parquet.Rows
	buf    []parquet.Row
	cur    *extract.Table
	err    error
}

// Next advances to the next batch, returning false at end of table or
// on error.
func (it *BatchIter) Next() bool {
	it.cur = nil
	if it.err != nil {
		return false
	}
	for {
		if it.rows == nil {
			if it.gi >= len(it.groups) {
				return false
			}
			it.rows = it.groups[it.gi].Rows()
			it.gi++
		}
		n, err := it.rows.ReadRows(it.buf)
		if n > 0 {
			batch, derr := it.decode(it.buf[:n])
			if derr != nil {
				it.err = derr
				return false
			}
			it.cur = batch
			if err == io.EOF {
				it.closeRows()
			}
			return true
		}
		if err == io.EOF {
			it.closeRows()
			continue
		}
		if err != nil {
			it.err = fmt.Errorf("failed to read table batch: %w", err)
			return false
		}
	}
}

// Batch returns the current batch as a sparse table.
func (it *BatchIter) Batch() *extract.Table { return it.cur }

// Err returns the first error encountered while iterating.
func (it *BatchIter) Err() error { return it.err }

// Close releases any open row reader.
func (it *BatchIter) Close() error {
	it.closeRows()
	return nil
}

func (it *BatchIter) closeRows() {
	if it.rows != nil {
		it.rows.Close()
		it.rows = nil
	}
}

func (it *BatchIter) decode(rows []parquet.Row) (*extract.Table, error) {
	bufs := newColBufs(it.file.cols)
	for i := range bufs {
		if it.file.cols[i].Kind == geo.Int32 {
			bufs[i].ints = make([]int32, 0, len(rows))
		} else {
			bufs[i].floats = make([]float32, 0, len(rows))
		}
	}
	for _, row := range rows {
		for _, v := range row {
			pos := it.file.leafOf[v.Column()]
			if it.file.cols[pos].Kind == geo.Int32 {
				bufs[pos].ints = append(bufs[pos].ints, v.Int32())
			} else {
				bufs[pos].floats = append(bufs[pos].floats, v.Float())
			}
		}
	}
	return tableFromBufs(it.file.cols, bufs)
}

type colBuf struct {
	ints   []int32
	floats []float32
}

func newColBufs(cols []ColumnInfo) []colBuf {
	return make([]colBuf, len(cols))
}

func tableFromBufs(cols []ColumnInfo, bufs []colBuf) (*extract.Table, error) {
	rows := 0
	if len(cols) > 0 {
		if cols[0].Kind == geo.Int32 {
			rows = len(bufs[0].ints)
		} else {
			rows = len(bufs[0].floats)
		}
	}
	t := extract.NewTable(rows)
	for i, ci := range cols {
		var err error
		if ci.Kind == geo.Int32 {
			err = t.AddIntColumn(ci.Name, bufs[i].ints)
		} else {
			err = t.AddFloatColumn(ci.Name, bufs[i].floats)
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
