package request

import (
	"reflect"
	"testing"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		check func(t *testing.T, r Request)
	}{
		{
			name: "ids as strings and integers",
			json: `{"kind": "ids", "ids": ["720575940621039145", 720575940613583001], "mirror": false}`,
			check: func(t *testing.T, r Request) {
				if r.Kind != ShapeIdentifierList {
					t.Fatalf("bad kind %s", r.Kind)
				}
				expected := neuprep.Identifiers{"720575940621039145", "720575940613583001"}
				if !reflect.DeepEqual(r.IDs, expected) {
					t.Errorf("expected %v, got %v", expected, r.IDs)
				}
				if r.MirrorOr(true) {
					t.Errorf("expected mirror override false")
				}
			},
		},
		{
			name: "coordinates",
			json: `{"kind": "coordinates", "template": "FLYWIRE", "points": [[1, 2, 3], [4.5, 5, 6]]}`,
			check: func(t *testing.T, r Request) {
				if r.Kind != CoordinateList || r.Template != "FLYWIRE" || len(r.Points) != 2 {
					t.Fatalf("unexpected request %s", r)
				}
				if r.Points[1] != (neuprep.Vector3d{4.5, 5, 6}) {
					t.Errorf("bad point %s", r.Points[1])
				}
				if !r.MirrorOr(true) {
					t.Errorf("expected default mirror when not given")
				}
			},
		},
		{
			name: "neurons",
			json: `{"kind": "neurons", "neurons": [{"id": 5813, "template": "HEMIBRAIN", "swc": "1 1 0 0 0 1 -1\n2 3 1 0 0 1 1\n"}]}`,
			check: func(t *testing.T, r Request) {
				s, found := r.Neurons["5813"]
				if r.Kind != NeuronCollection || !found {
					t.Fatalf("unexpected request %s", r)
				}
				if s.Template != "HEMIBRAIN" || len(s.Nodes) != 2 {
					t.Errorf("unexpected skeleton %s", s)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode([]byte(tt.json))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, r)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	bad := map[string]string{
		"untagged":          `{"ids": ["1", "2"]}`,
		"unknown kind":      `{"kind": "matrix", "ids": ["1"]}`,
		"mixed payload":     `{"kind": "ids", "ids": ["1"], "points": [[1, 2, 3]]}`,
		"empty ids":         `{"kind": "ids", "ids": []}`,
		"2d point":          `{"kind": "coordinates", "template": "FLYWIRE", "points": [[1, 2]]}`,
		"missing template":  `{"kind": "coordinates", "points": [[1, 2, 3]]}`,
		"bad swc":           `{"kind": "neurons", "neurons": [{"id": "1", "swc": "1 1 0 0"}]}`,
		"orphan swc parent": `{"kind": "neurons", "neurons": [{"id": "1", "swc": "1 1 0 0 0 1 7\n"}]}`,
		"not json":          `kind: ids`,
	}
	for name, js := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(js)); err == nil {
				t.Errorf("expected %s to be rejected", name)
			}
		})
	}
}

func TestValidateConstructors(t *testing.T) {
	s := &skeleton.Skeleton{ID: "1", Nodes: []skeleton.Node{{ID: 1, Parent: skeleton.NoParent}}}
	good := []Request{
		Identifiers("1", "2"),
		Coordinates("FLYWIRE", neuprep.Vector3d{1, 2, 3}),
		Neurons(s),
	}
	for _, r := range good {
		if err := r.Validate(); err != nil {
			t.Errorf("%s: unexpected error %v", r, err)
		}
	}
	bad := []Request{
		{},
		Identifiers(),
		Identifiers("1", " "),
		Coordinates("", neuprep.Vector3d{1, 2, 3}),
		{Kind: ShapeIdentifierList, IDs: neuprep.Identifiers{"1"}, Points: []neuprep.Vector3d{{1, 2, 3}}},
	}
	for _, r := range bad {
		if err := r.Validate(); err == nil {
			t.Errorf("%s: expected validation error", r)
		}
	}
	if k, err := ParseKind("Neurons"); err != nil || k != NeuronCollection {
		t.Errorf("unexpected kind parse %s %v", k, err)
	}
}
