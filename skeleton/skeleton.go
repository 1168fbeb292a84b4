// Package skeleton models neuron skeletons as trees of nodes with parent links,
// with SWC text I/O and a compact binary codec used for caching and archiving.
package skeleton

import (
	"fmt"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// NoParent marks a root node.
const NoParent int64 = -1

// Node is one skeleton sample point.
type Node struct {
	ID     int64
	Type   int
	Pos    neuprep.Vector3d
	Radius float64
	Parent int64
}

// Skeleton is a tree-structured reconstruction of a single neuron in some
// template space.
type Skeleton struct {
	ID       neuprep.Identifier
	Template string
	Nodes    []Node
}

func (s *Skeleton) String() string {
	return fmt.Sprintf("skeleton %s (%d nodes, %s)", s.ID, len(s.Nodes), s.templateName())
}

func (s *Skeleton) templateName() string {
	if s.Template == "" {
		return "no template"
	}
	return s.Template
}

// Clone returns a deep copy.
func (s *Skeleton) Clone() *Skeleton {
	out := &Skeleton{ID: s.ID, Template: s.Template}
	out.Nodes = append([]Node(nil), s.Nodes...)
	return out
}

// Points returns the node positions in node order.
func (s *Skeleton) Points() []neuprep.Vector3d {
	pts := make([]neuprep.Vector3d, len(s.Nodes))
	for i, n := range s.Nodes {
		pts[i] = n.Pos
	}
	return pts
}

// SetPoints replaces node positions in node order.
func (s *Skeleton) SetPoints(pts []neuprep.Vector3d) error {
	if len(pts) != len(s.Nodes) {
		return fmt.Errorf("got %d points for %s", len(pts), s)
	}
	for i := range s.Nodes {
		s.Nodes[i].Pos = pts[i]
	}
	return nil
}

// Mirrored returns a copy identified as the mirrored variant.  Positions are
// not changed here; see the transform package for reflecting coordinates.
func (s *Skeleton) Mirrored(suffix string) *Skeleton {
	out := s.Clone()
	out.ID = s.ID.Mirror(suffix)
	return out
}

// Roots returns the ids of nodes without a parent.
func (s *Skeleton) Roots() []int64 {
	var roots []int64
	for _, n := range s.Nodes {
		if n.Parent == NoParent {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Validate checks for an identifier, unique node ids and resolvable parents.
func (s *Skeleton) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skeleton has no identifier")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("skeleton %s has no nodes", s.ID)
	}
	seen := make(map[int64]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if _, found := seen[n.ID]; found {
			return fmt.Errorf("skeleton %s has duplicate node id %d", s.ID, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, n := range s.Nodes {
		if n.Parent == NoParent {
			continue
		}
		if n.Parent == n.ID {
			return fmt.Errorf("skeleton %s node %d is its own parent", s.ID, n.ID)
		}
		if _, found := seen[n.Parent]; !found {
			return fmt.Errorf("skeleton %s node %d has unknown parent %d", s.ID, n.ID, n.Parent)
		}
	}
	if len(s.Roots()) == 0 {
		return fmt.Errorf("skeleton %s has no root node", s.ID)
	}
	return nil
}
