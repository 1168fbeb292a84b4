package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

func TestSWCDirectory(t *testing.T) {
	dir := t.TempDir()
	swc := "# id: ignored\n1 0 10 20 30 1.5 -1\n2 0 11 21 31 1.0 1\n"
	if err := os.WriteFile(filepath.Join(dir, "5813.swc"), []byte(swc), 0644); err != nil {
		t.Fatal(err)
	}
	d := SWCDirectory{Dir: dir, Template: "HEMIBRAIN"}
	s, err := d.Skeletonize(context.Background(), "5813")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != "5813" || s.Template != "HEMIBRAIN" || len(s.Nodes) != 2 {
		t.Errorf("unexpected skeleton %v with %d nodes", s, len(s.Nodes))
	}
	if _, err := d.Skeletonize(context.Background(), "404"); err == nil {
		t.Errorf("expected error for missing SWC file")
	}
}

func TestMatrixScorer(t *testing.T) {
	nan := matrix.Absent()
	scores, err := matrix.FromRows(neuprep.Identifiers{"a", "b"}, neuprep.Identifiers{"a", "b"}, [][]float64{
		{1, 0.25},
		{nan, 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	node := []skeleton.Node{{ID: 1, Parent: skeleton.NoParent}}
	queries := skeleton.NewCollection(&skeleton.Skeleton{ID: "a", Nodes: node}, &skeleton.Skeleton{ID: "c", Nodes: node})
	targets := skeleton.NewCollection(&skeleton.Skeleton{ID: "b", Nodes: node})

	m, err := MatrixScorer{Scores: scores}.Score(context.Background(), queries, targets)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumRows() != 2 || m.NumCols() != 1 {
		t.Fatalf("unexpected shape %s", m)
	}
	if v, ok := m.Get("a", "b"); !ok || v != 0.25 {
		t.Errorf("expected (a,b) = 0.25, got %g", v)
	}
	if _, ok := m.Get("c", "b"); ok {
		t.Errorf("expected unknown query to score absent")
	}
}
