package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

// SWCDirectory is a Skeletonizer that reads "<id>.swc" files written by an
// external skeletonization run.
type SWCDirectory struct {
	Dir string

	// Template is assigned to skeletons whose file does not name one.
	Template string
}

func (d SWCDirectory) Skeletonize(ctx context.Context, id neuprep.Identifier) (*skeleton.Skeleton, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.Dir, string(id)+".swc"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := skeleton.ReadSWC(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", f.Name(), err)
	}
	s.ID = id
	if s.Template == "" {
		s.Template = d.Template
	}
	return s, nil
}

// MatrixScorer is a Scorer that looks up scores in a precomputed matrix of
// directional NBLAST scores.  Pairs missing from the matrix are absent.
type MatrixScorer struct {
	Scores *matrix.Matrix
}

func (s MatrixScorer) Score(ctx context.Context, queries, targets skeleton.Collection) (*matrix.Matrix, error) {
	rows, cols := queries.IDs(), targets.IDs()
	out, err := matrix.NewEmpty(rows, cols)
	if err != nil {
		return nil, err
	}
	var found int
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.Scores.HasRow(row) {
			continue
		}
		for _, col := range cols {
			if v, ok := s.Scores.Get(row, col); ok {
				if err := out.Set(row, col, v); err != nil {
					return nil, err
				}
				found++
			}
		}
	}
	neuprep.Debugf("Found %d of %d scores in precomputed matrix\n", found, len(rows)*len(cols))
	return out, nil
}
