/*
Package matrix maintains pairwise NBLAST score matrices indexed by shape
identifier on both axes.

Absent cells are stored as NaN and are never treated as zero.  All operations
return new matrices; a *Matrix is not modified after construction except by
Set.
*/
package matrix

import (
	"fmt"
	"math"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// Matrix is a row-major table of scores with named rows (query identities)
// and named columns (target identities).
type Matrix struct {
	rows   neuprep.Identifiers
	cols   neuprep.Identifiers
	rowIdx map[neuprep.Identifier]int
	colIdx map[neuprep.Identifier]int
	data   []float64
}

// Absent returns the value used for cells without a score.
func Absent() float64 {
	return math.NaN()
}

// IsAbsent returns true if v marks a missing cell.
func IsAbsent(v float64) bool {
	return math.IsNaN(v)
}

func indexOf(op, axis string, ids neuprep.Identifiers) (map[neuprep.Identifier]int, error) {
	idx := make(map[neuprep.Identifier]int, len(ids))
	for i, id := range ids {
		if _, found := idx[id]; found {
			return nil, &ShapeMismatchError{Op: op, Reason: fmt.Sprintf("duplicate %s identifier %q", axis, id)}
		}
		idx[id] = i
	}
	return idx, nil
}

// New returns a matrix with the given row and column identifiers and row-major
// data.  The data must hold exactly len(rows)*len(cols) values and identifiers
// must be unique along each axis.  The data slice is copied.
func New(rows, cols neuprep.Identifiers, data []float64) (*Matrix, error) {
	if len(data) != len(rows)*len(cols) {
		return nil, &ShapeMismatchError{
			Op:     "new",
			Reason: fmt.Sprintf("%d values for %d x %d matrix", len(data), len(rows), len(cols)),
		}
	}
	m, err := NewEmpty(rows, cols)
	if err != nil {
		return nil, err
	}
	copy(m.data, data)
	return m, nil
}

// NewEmpty returns a matrix with every cell absent.
func NewEmpty(rows, cols neuprep.Identifiers) (*Matrix, error) {
	rowIdx, err := indexOf("new", "row", rows)
	if err != nil {
		return nil, err
	}
	colIdx, err := indexOf("new", "column", cols)
	if err != nil {
		return nil, err
	}
	m := &Matrix{
		rows:   append(neuprep.Identifiers(nil), rows...),
		cols:   append(neuprep.Identifiers(nil), cols...),
		rowIdx: rowIdx,
		colIdx: colIdx,
		data:   make([]float64, len(rows)*len(cols)),
	}
	for i := range m.data {
		m.data[i] = math.NaN()
	}
	return m, nil
}

// FromRows builds a matrix from a slice of rows.  Every row must have
// len(cols) values.
func FromRows(rows, cols neuprep.Identifiers, values [][]float64) (*Matrix, error) {
	if len(values) != len(rows) {
		return nil, &ShapeMismatchError{
			Op:     "new",
			Reason: fmt.Sprintf("%d value rows for %d row identifiers", len(values), len(rows)),
		}
	}
	data := make([]float64, 0, len(rows)*len(cols))
	for i, row := range values {
		if len(row) != len(cols) {
			return nil, &ShapeMismatchError{
				Op:     "new",
				Reason: fmt.Sprintf("row %q has %d values, expected %d", rows[i], len(row), len(cols)),
			}
		}
		data = append(data, row...)
	}
	return New(rows, cols, data)
}

// Empty returns a matrix with no rows or columns.
func Empty() *Matrix {
	m, _ := NewEmpty(nil, nil)
	return m
}

// Validate checks the internal consistency of the matrix, e.g. one that was
// constructed as a zero value or decoded from an untrusted source.
func (m *Matrix) Validate() error {
	if m == nil {
		return &ShapeMismatchError{Op: "validate", Reason: "nil matrix"}
	}
	if len(m.data) != len(m.rows)*len(m.cols) {
		return &ShapeMismatchError{
			Op:     "validate",
			Reason: fmt.Sprintf("%d values for %d x %d matrix", len(m.data), len(m.rows), len(m.cols)),
		}
	}
	if len(m.rowIdx) != len(m.rows) || len(m.colIdx) != len(m.cols) {
		return &ShapeMismatchError{Op: "validate", Reason: "malformed identifier index"}
	}
	for i, id := range m.rows {
		if m.rowIdx[id] != i {
			return &ShapeMismatchError{Op: "validate", Reason: fmt.Sprintf("row index for %q is inconsistent", id)}
		}
	}
	for j, id := range m.cols {
		if m.colIdx[id] != j {
			return &ShapeMismatchError{Op: "validate", Reason: fmt.Sprintf("column index for %q is inconsistent", id)}
		}
	}
	return nil
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%d x %d score matrix", len(m.rows), len(m.cols))
}

// Rows returns a copy of the row identifiers.
func (m *Matrix) Rows() neuprep.Identifiers {
	return append(neuprep.Identifiers(nil), m.rows...)
}

// Cols returns a copy of the column identifiers.
func (m *Matrix) Cols() neuprep.Identifiers {
	return append(neuprep.Identifiers(nil), m.cols...)
}

func (m *Matrix) NumRows() int { return len(m.rows) }
func (m *Matrix) NumCols() int { return len(m.cols) }

// IsEmpty returns true if the matrix has no cells.
func (m *Matrix) IsEmpty() bool {
	return m == nil || len(m.data) == 0
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*len(m.cols)+j]
}

func (m *Matrix) set(i, j int, v float64) {
	m.data[i*len(m.cols)+j] = v
}

// Get returns the score for the given row and column identifiers.  The second
// return value is false if either identifier is unknown or the cell is absent.
func (m *Matrix) Get(row, col neuprep.Identifier) (float64, bool) {
	if m == nil {
		return math.NaN(), false
	}
	i, found := m.rowIdx[row]
	if !found {
		return math.NaN(), false
	}
	j, found := m.colIdx[col]
	if !found {
		return math.NaN(), false
	}
	v := m.At(i, j)
	return v, !math.IsNaN(v)
}

// Set stores a score for an existing row and column.
func (m *Matrix) Set(row, col neuprep.Identifier, v float64) error {
	i, found := m.rowIdx[row]
	if !found {
		return fmt.Errorf("row %q not in matrix", row)
	}
	j, found := m.colIdx[col]
	if !found {
		return fmt.Errorf("column %q not in matrix", col)
	}
	m.set(i, j, v)
	return nil
}

// HasRow returns true if the identifier is a row of the matrix.
func (m *Matrix) HasRow(id neuprep.Identifier) bool {
	_, found := m.rowIdx[id]
	return found
}

// HasCol returns true if the identifier is a column of the matrix.
func (m *Matrix) HasCol(id neuprep.Identifier) bool {
	_, found := m.colIdx[id]
	return found
}

// Row returns a copy of the values of row i.
func (m *Matrix) Row(i int) []float64 {
	n := len(m.cols)
	return append([]float64(nil), m.data[i*n:(i+1)*n]...)
}

// Count returns the number of present cells.
func (m *Matrix) Count() int {
	var n int
	for _, v := range m.data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Identifiers returns the union of row and column identifiers, rows first.
func (m *Matrix) Identifiers() neuprep.Identifiers {
	return union(m.rows, m.cols)
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out, _ := New(m.rows, m.cols, m.data)
	return out
}

// Transpose returns a new matrix with rows and columns swapped.
func (m *Matrix) Transpose() *Matrix {
	out, _ := NewEmpty(m.cols, m.rows)
	for i := range m.rows {
		for j := range m.cols {
			out.set(j, i, m.At(i, j))
		}
	}
	return out
}

// Map returns a new matrix with f applied to every present cell.
func (m *Matrix) Map(f func(float64) float64) *Matrix {
	out := m.Clone()
	for i, v := range out.data {
		if !math.IsNaN(v) {
			out.data[i] = f(v)
		}
	}
	return out
}

// Each calls f for every present cell in row-major order.
func (m *Matrix) Each(f func(row, col neuprep.Identifier, v float64)) {
	for i, row := range m.rows {
		for j, col := range m.cols {
			if v := m.At(i, j); !math.IsNaN(v) {
				f(row, col, v)
			}
		}
	}
}

// Equal returns true if both matrices have the same identifiers in the same
// order and all cells agree within tol.  Absent cells only match absent cells.
func (m *Matrix) Equal(x *Matrix, tol float64) bool {
	if len(m.rows) != len(x.rows) || len(m.cols) != len(x.cols) {
		return false
	}
	for i := range m.rows {
		if m.rows[i] != x.rows[i] {
			return false
		}
	}
	for j := range m.cols {
		if m.cols[j] != x.cols[j] {
			return false
		}
	}
	for i, v := range m.data {
		w := x.data[i]
		if math.IsNaN(v) || math.IsNaN(w) {
			if math.IsNaN(v) != math.IsNaN(w) {
				return false
			}
			continue
		}
		if math.Abs(v-w) > tol {
			return false
		}
	}
	return true
}

// union returns a followed by the members of b not in a, without duplicates.
func union(a, b neuprep.Identifiers) neuprep.Identifiers {
	out := make(neuprep.Identifiers, 0, len(a)+len(b))
	seen := make(map[neuprep.Identifier]struct{}, len(a)+len(b))
	for _, ids := range []neuprep.Identifiers{a, b} {
		for _, id := range ids {
			if _, found := seen[id]; found {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func sameSet(a neuprep.Identifiers, idx map[neuprep.Identifier]int) bool {
	if len(a) != len(idx) {
		return false
	}
	for _, id := range a {
		if _, found := idx[id]; !found {
			return false
		}
	}
	return true
}
