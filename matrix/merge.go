package matrix

import (
	"fmt"
	"math"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// MergeOptions controls how freshly computed scores are folded into an archive.
// Start from DefaultMergeOptions.  Options with both ClampMin and Decimals
// zero take the default clamp and rounding, since clamping at 0 and rounding
// to integers would erase NBLAST scores.
type MergeOptions struct {
	// MirrorSuffix is stripped from identifiers before collapsing.
	MirrorSuffix string

	// Reduce combines scores of identifiers that collapse together.  Nil means max.
	Reduce Reduction

	// ClampMin is the lower bound for scores.  There is no upper bound.
	ClampMin float64

	// Decimals is the number of decimal digits kept in persisted scores.
	Decimals int

	// Symmetrize folds the fresh matrix onto its transpose so that every
	// computed pair (i,j) has an equal (j,i) entry.
	Symmetrize bool
}

// DefaultMergeOptions returns the standard NBLAST archive settings.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		MirrorSuffix: neuprep.DefaultMirrorSuffix,
		Reduce:       ReduceMax,
		ClampMin:     -0.5,
		Decimals:     3,
		Symmetrize:   true,
	}
}

func (o MergeOptions) withDefaults() MergeOptions {
	if o.ClampMin == 0 && o.Decimals == 0 {
		def := DefaultMergeOptions()
		o.ClampMin, o.Decimals = def.ClampMin, def.Decimals
	}
	return o
}

// MergeResult holds the merged archive along with the freshly computed portion.
type MergeResult struct {
	// Merged is the full matrix ready to replace the archive.
	Merged *Matrix

	// Fresh is the averaged, collapsed, clamped and rounded update before merging.
	Fresh *Matrix

	// Collisions lists collapse groups with more than two members.
	Collisions []IdentifierCollision
}

// Average combines directional scores: combined[i,j] = (forward[i,j] + backward[j,i]) / 2.
// The backward matrix must have the forward columns as rows and the forward rows
// as columns, in any order.  The result is indexed like forward.  If either
// term is absent the combined cell is absent.
func Average(forward, backward *Matrix) (*Matrix, error) {
	if err := forward.Validate(); err != nil {
		return nil, &ShapeMismatchError{Op: "average", Reason: "forward: " + err.Error()}
	}
	if err := backward.Validate(); err != nil {
		return nil, &ShapeMismatchError{Op: "average", Reason: "backward: " + err.Error()}
	}
	if !sameSet(forward.rows, backward.colIdx) || !sameSet(forward.cols, backward.rowIdx) {
		return nil, &ShapeMismatchError{
			Op: "average",
			Reason: fmt.Sprintf("forward is %d x %d but backward is %d x %d with different identifiers",
				forward.NumRows(), forward.NumCols(), backward.NumRows(), backward.NumCols()),
		}
	}
	out, err := NewEmpty(forward.rows, forward.cols)
	if err != nil {
		return nil, err
	}
	for i, row := range forward.rows {
		bj := backward.colIdx[row]
		for j, col := range forward.cols {
			bi := backward.rowIdx[col]
			out.set(i, j, (forward.At(i, j)+backward.At(bi, bj))/2)
		}
	}
	return out, nil
}

// StripSuffix returns the identifiers with a trailing mirror suffix removed.
// The result may contain duplicates.
func StripSuffix(ids neuprep.Identifiers, suffix string) neuprep.Identifiers {
	out := make(neuprep.Identifiers, len(ids))
	for i, id := range ids {
		out[i] = id.Strip(suffix)
	}
	return out
}

type group struct {
	id      neuprep.Identifier
	members []int
}

// groupBy groups axis positions by stripped identifier in first-appearance order.
func groupBy(ids neuprep.Identifiers, suffix string, axis Axis) ([]group, []IdentifierCollision) {
	var groups []group
	pos := make(map[neuprep.Identifier]int, len(ids))
	for i, id := range StripSuffix(ids, suffix) {
		g, found := pos[id]
		if !found {
			pos[id] = len(groups)
			groups = append(groups, group{id: id, members: []int{i}})
			continue
		}
		groups[g].members = append(groups[g].members, i)
	}
	var collisions []IdentifierCollision
	for _, g := range groups {
		if len(g.members) > 2 {
			c := IdentifierCollision{Axis: axis, Stripped: g.id}
			for _, i := range g.members {
				c.Members = append(c.Members, ids[i])
			}
			collisions = append(collisions, c)
		}
	}
	return groups, collisions
}

// CollapseRows strips the mirror suffix from row identifiers and combines rows
// that then share an identifier using f.  Collapsing a matrix without
// duplicate rows after stripping only renames rows.
func CollapseRows(m *Matrix, suffix string, f Reduction) (*Matrix, []IdentifierCollision) {
	if f == nil {
		f = ReduceMax
	}
	groups, collisions := groupBy(m.rows, suffix, RowAxis)
	rows := make(neuprep.Identifiers, len(groups))
	for g := range groups {
		rows[g] = groups[g].id
	}
	out, _ := NewEmpty(rows, m.cols)
	values := make([]float64, 0, 2)
	for g, grp := range groups {
		for j := range m.cols {
			values = values[:0]
			for _, i := range grp.members {
				values = append(values, m.At(i, j))
			}
			out.set(g, j, reduceGroup(f, values))
		}
	}
	return out, collisions
}

// CollapseColumns is the column analog of CollapseRows.
func CollapseColumns(m *Matrix, suffix string, f Reduction) (*Matrix, []IdentifierCollision) {
	t, collisions := CollapseRows(m.Transpose(), suffix, f)
	for i := range collisions {
		collisions[i].Axis = ColumnAxis
	}
	return t.Transpose(), collisions
}

// Collapse collapses rows and then columns.
func Collapse(m *Matrix, suffix string, f Reduction) (*Matrix, []IdentifierCollision) {
	byRow, rowCollisions := CollapseRows(m, suffix, f)
	out, colCollisions := CollapseColumns(byRow, suffix, f)
	return out, append(rowCollisions, colCollisions...)
}

// Clamp returns a matrix where every present value below min is set to min.
func Clamp(m *Matrix, min float64) *Matrix {
	return m.Map(func(v float64) float64 {
		if v < min {
			return min
		}
		return v
	})
}

// Round returns a matrix with every present value rounded to the given
// number of decimal digits.
func Round(m *Matrix, decimals int) *Matrix {
	scale := math.Pow(10, float64(decimals))
	return m.Map(func(v float64) float64 {
		return math.Round(v*scale) / scale
	})
}

// Symmetrize returns a square matrix over the union of row and column
// identifiers where every present (i,j) is mirrored to (j,i).  When both (i,j)
// and (j,i) are present their mean is used for both.
func Symmetrize(m *Matrix) *Matrix {
	ids := m.Identifiers()
	out, _ := NewEmpty(ids, ids)
	m.Each(func(row, col neuprep.Identifier, v float64) {
		if w, found := m.Get(col, row); found {
			v = (v + w) / 2
		}
		i, j := out.rowIdx[row], out.colIdx[col]
		out.set(i, j, v)
		i, j = out.rowIdx[col], out.colIdx[row]
		out.set(i, j, v)
	})
	return out
}

// CombineFirst overlays fresh onto archive.  The result has the archive's rows
// and columns followed by any new ones.  Cells present in fresh take its value,
// otherwise the archive value is kept; cells present in neither stay absent.
func CombineFirst(fresh, archive *Matrix) *Matrix {
	if archive == nil {
		archive = Empty()
	}
	rows := union(archive.rows, fresh.rows)
	cols := union(archive.cols, fresh.cols)
	out, _ := NewEmpty(rows, cols)
	archive.Each(func(row, col neuprep.Identifier, v float64) {
		out.set(out.rowIdx[row], out.colIdx[col], v)
	})
	fresh.Each(func(row, col neuprep.Identifier, v float64) {
		out.set(out.rowIdx[row], out.colIdx[col], v)
	})
	return out
}

// Update runs the first five merge steps on directional scores: average,
// strip and collapse, optional symmetrization, clamp, and round.
func Update(forward, backward *Matrix, opts MergeOptions) (*Matrix, []IdentifierCollision, error) {
	opts = opts.withDefaults()
	combined, err := Average(forward, backward)
	if err != nil {
		return nil, nil, err
	}
	collapsed, collisions := Collapse(combined, opts.MirrorSuffix, opts.Reduce)
	for _, c := range collisions {
		neuprep.Warningf("Identifier collision while collapsing scores: %s\n", c)
	}
	if opts.Symmetrize {
		collapsed = Symmetrize(collapsed)
	}
	fresh := Round(Clamp(collapsed, opts.ClampMin), opts.Decimals)
	return fresh, collisions, nil
}

// Merge combines forward scores (A vs B) and backward scores (B vs A) into one
// deduplicated, clamped and rounded matrix and folds it into archive, which may
// be nil or empty.  On error nothing is returned and the archive is untouched.
func Merge(forward, backward, archive *Matrix, opts MergeOptions) (*MergeResult, error) {
	if archive != nil {
		if err := archive.Validate(); err != nil {
			return nil, &ShapeMismatchError{Op: "merge", Reason: "archive: " + err.Error()}
		}
	}
	if opts.Decimals < 0 {
		return nil, fmt.Errorf("bad merge options: negative decimals %d", opts.Decimals)
	}
	fresh, collisions, err := Update(forward, backward, opts)
	if err != nil {
		return nil, err
	}
	merged := CombineFirst(fresh, archive)
	neuprep.Debugf("Merged %s into archive %s -> %s\n", fresh, archiveString(archive), merged)
	return &MergeResult{
		Merged:     merged,
		Fresh:      fresh,
		Collisions: collisions,
	}, nil
}

func archiveString(m *Matrix) string {
	if m == nil {
		return "(none)"
	}
	return m.String()
}
