package matrix

import (
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// IDField is the name of the Arrow column holding row identifiers.  Every
// other column is named by its column identifier.
const IDField = "id"

// ArrowOption adjusts how a matrix is written as an Arrow IPC stream.
type ArrowOption func(*arrowConfig)

type arrowConfig struct {
	zstd bool
}

// WithZstd compresses record bodies with zstd.
func WithZstd() ArrowOption {
	return func(c *arrowConfig) { c.zstd = true }
}

func arrowSchema(cols neuprep.Identifiers) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(cols)+1)
	fields = append(fields, arrow.Field{Name: IDField, Type: arrow.BinaryTypes.String})
	for _, col := range cols {
		fields = append(fields, arrow.Field{Name: string(col), Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// WriteArrow writes the matrix as a single-record Arrow IPC stream.  Absent
// cells are written as nulls.
func WriteArrow(w io.Writer, m *Matrix, opts ...ArrowOption) error {
	if err := m.Validate(); err != nil {
		return err
	}
	var cfg arrowConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	pool := memory.NewGoAllocator()
	schema := arrowSchema(m.cols)

	idBuilder := array.NewStringBuilder(pool)
	defer idBuilder.Release()
	for _, row := range m.rows {
		idBuilder.Append(string(row))
	}
	columns := make([]arrow.Array, 0, len(m.cols)+1)
	defer func() {
		for _, col := range columns {
			col.Release()
		}
	}()
	columns = append(columns, idBuilder.NewArray())

	colBuilder := array.NewFloat64Builder(pool)
	defer colBuilder.Release()
	for j := range m.cols {
		colBuilder.Reserve(len(m.rows))
		for i := range m.rows {
			if v := m.At(i, j); math.IsNaN(v) {
				colBuilder.AppendNull()
			} else {
				colBuilder.Append(v)
			}
		}
		columns = append(columns, colBuilder.NewArray())
	}

	record := array.NewRecord(schema, columns, int64(len(m.rows)))
	defer record.Release()

	ipcOpts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(pool)}
	if cfg.zstd {
		ipcOpts = append(ipcOpts, ipc.WithZstd())
	}
	writer := ipc.NewWriter(w, ipcOpts...)
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("unable to write %s as arrow record: %v", m, err)
	}
	return writer.Close()
}

// ReadArrow reads a matrix from an Arrow IPC stream written by WriteArrow.
// Multiple record batches are concatenated by rows.
func ReadArrow(r io.Reader) (*Matrix, error) {
	pool := memory.NewGoAllocator()
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(pool))
	if err != nil {
		return nil, fmt.Errorf("unable to open arrow stream: %v", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	fields := schema.Fields()
	if len(fields) == 0 || fields[0].Name != IDField || fields[0].Type.ID() != arrow.STRING {
		return nil, &ShapeMismatchError{Op: "read", Reason: fmt.Sprintf("first arrow column must be utf8 %q", IDField)}
	}
	cols := make(neuprep.Identifiers, 0, len(fields)-1)
	for _, f := range fields[1:] {
		if f.Type.ID() != arrow.FLOAT64 {
			return nil, &ShapeMismatchError{Op: "read", Reason: fmt.Sprintf("column %q has type %s, expected float64", f.Name, f.Type)}
		}
		cols = append(cols, neuprep.Identifier(f.Name))
	}

	var rows neuprep.Identifiers
	var data []float64
	for rdr.Next() {
		rec := rdr.Record()
		ids, ok := rec.Column(0).(*array.String)
		if !ok {
			return nil, &ShapeMismatchError{Op: "read", Reason: "identifier column is not a string array"}
		}
		values := make([]*array.Float64, len(cols))
		for j := range cols {
			if values[j], ok = rec.Column(j + 1).(*array.Float64); !ok {
				return nil, &ShapeMismatchError{Op: "read", Reason: fmt.Sprintf("column %q is not a float64 array", cols[j])}
			}
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, neuprep.Identifier(ids.Value(i)))
			for j := range cols {
				if values[j].IsNull(i) {
					data = append(data, math.NaN())
				} else {
					data = append(data, values[j].Value(i))
				}
			}
		}
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error reading arrow records: %v", err)
	}
	return New(rows, cols, data)
}
