package transform

import (
	"context"
	"fmt"
	"testing"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

func closeTo(a, b neuprep.Vector3d) bool {
	return a.Distance(b) < 1e-9
}

func TestAffineInverse(t *testing.T) {
	a := Affine{
		M: [3][3]float64{{2, 0.5, 0}, {0, 1, -1}, {0.25, 0, 3}},
		T: neuprep.Vector3d{10, -20, 5},
	}
	inv, err := a.invert()
	if err != nil {
		t.Fatal(err)
	}
	pts := []neuprep.Vector3d{{0, 0, 0}, {1, 2, 3}, {-400.5, 1e4, 17}}
	for _, p := range pts {
		if got := inv.Apply(a.Apply(p)); !closeTo(got, p) {
			t.Errorf("inverse did not restore %s: got %s", p, got)
		}
	}
	if _, err := (Affine{}).Inverse(); err == nil {
		t.Errorf("expected singular matrix error")
	}
}

func TestAffineThen(t *testing.T) {
	a := Scale(4, 4, 40)
	b := Translate(neuprep.Vector3d{1, 2, 3})
	ab := a.Then(b)
	p := neuprep.Vector3d{10, 20, 30}
	if got, want := ab.Apply(p), b.Apply(a.Apply(p)); !closeTo(got, want) {
		t.Errorf("composition mismatch: %s vs %s", got, want)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := Builtin()
	ctx := context.Background()

	got, err := r.Points(ctx, []neuprep.Vector3d{{100, 200, 3000}}, "flywire_voxel", "FlyWire")
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(got[0], neuprep.Vector3d{400, 800, 120000}) {
		t.Errorf("unexpected voxel->nm result %s", got[0])
	}

	back, err := r.Points(ctx, got, FlyWire, FlyWireVoxel)
	if err != nil {
		t.Fatalf("expected inverse lookup to work: %v", err)
	}
	if !closeTo(back[0], neuprep.Vector3d{100, 200, 3000}) {
		t.Errorf("inverse lookup gave %s", back[0])
	}

	if _, err := r.Lookup(FlyWire, Hemibrain); err == nil {
		t.Errorf("expected error for unregistered pair")
	}
	if tr, err := r.Lookup("JRC2018F", "jrc2018f"); err != nil {
		t.Errorf("identity lookup failed: %v", err)
	} else if _, ok := tr.(Identity); !ok {
		t.Errorf("expected identity, got %T", tr)
	}
	if n := len(r.Pairs()); n != 2 {
		t.Errorf("expected 2 registered pairs, got %d", n)
	}
}

type failingTransform struct{}

func (failingTransform) Transform(ctx context.Context, pts []neuprep.Vector3d) ([]neuprep.Vector3d, error) {
	return nil, fmt.Errorf("registration service unavailable")
}

func TestSkeletonTransformAndMirror(t *testing.T) {
	r := Builtin()
	r.RegisterMirror(FlyWire, Midplane{X: 500})
	r.Register(FlyWire, "BROKEN", failingTransform{})
	ctx := context.Background()

	s := &skeleton.Skeleton{
		ID:       "720575940621039145",
		Template: FlyWireVoxel,
		Nodes: []skeleton.Node{
			{ID: 1, Pos: neuprep.Vector3d{100, 10, 1}, Parent: skeleton.NoParent},
			{ID: 2, Pos: neuprep.Vector3d{110, 12, 2}, Parent: 1},
		},
	}
	nm, err := r.Skeleton(ctx, s, FlyWire)
	if err != nil {
		t.Fatal(err)
	}
	if nm.Template != FlyWire || !closeTo(nm.Nodes[1].Pos, neuprep.Vector3d{440, 48, 80}) {
		t.Errorf("unexpected transformed skeleton %v", nm.Nodes)
	}
	if s.Template != FlyWireVoxel || s.Nodes[1].Pos[0] != 110 {
		t.Errorf("transform modified the input skeleton")
	}

	m, err := r.MirrorSkeleton(ctx, nm, neuprep.DefaultMirrorSuffix)
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "720575940621039145_m" || !closeTo(m.Nodes[0].Pos, neuprep.Vector3d{600, 40, 40}) {
		t.Errorf("unexpected mirror %s %v", m.ID, m.Nodes)
	}
	twice, _ := Midplane{X: 500}.Mirror(ctx, m.Points())
	for i, p := range twice {
		if !closeTo(p, nm.Nodes[i].Pos) {
			t.Errorf("mirroring twice should restore node %d", i)
		}
	}

	if _, err := r.MirrorSkeleton(ctx, s, "_m"); err == nil {
		t.Errorf("expected missing mirror error for voxel template")
	}
	if _, err := r.Skeleton(ctx, nm, "BROKEN"); err == nil {
		t.Errorf("expected external transform error to propagate")
	}
	noTemplate := s.Clone()
	noTemplate.Template = ""
	if _, err := r.Skeleton(ctx, noTemplate, FlyWire); err == nil {
		t.Errorf("expected error for skeleton without template")
	}
}
