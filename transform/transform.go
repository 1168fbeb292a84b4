/*
Package transform moves points and skeletons between template brain spaces.

Registration between templates is done by external engines; anything
implementing Transformer can be registered for a (source, target) pair.  The
package supplies affine transforms, used for unit and voxel-size conversions,
and midplane mirroring for templates that are symmetric about a plane.
*/
package transform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

// Transformer maps points from one template space into another.
type Transformer interface {
	Transform(ctx context.Context, pts []neuprep.Vector3d) ([]neuprep.Vector3d, error)
}

// Invertible transforms can supply the reverse mapping.
type Invertible interface {
	Transformer
	Inverse() (Transformer, error)
}

// Mirror reflects points across the anatomical midplane of a template.
type Mirror interface {
	Mirror(ctx context.Context, pts []neuprep.Vector3d) ([]neuprep.Vector3d, error)
}

type pair struct {
	source, target string
}

func normalize(template string) string {
	return strings.ToUpper(strings.TrimSpace(template))
}

// Registry holds transforms between template pairs and mirrors per template.
// Template names are case insensitive.
type Registry struct {
	mu         sync.RWMutex
	transforms map[pair]Transformer
	mirrors    map[string]Mirror
}

func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[pair]Transformer),
		mirrors:    make(map[string]Mirror),
	}
}

// Register adds a transform from source to target, replacing any previous one.
func (r *Registry) Register(source, target string, t Transformer) {
	r.mu.Lock()
	r.transforms[pair{normalize(source), normalize(target)}] = t
	r.mu.Unlock()
}

// RegisterMirror sets the mirror for a template.
func (r *Registry) RegisterMirror(template string, m Mirror) {
	r.mu.Lock()
	r.mirrors[normalize(template)] = m
	r.mu.Unlock()
}

// Lookup returns the transform from source to target.  Identical templates
// give the identity.  If only the reverse direction is registered and it is
// invertible, its inverse is returned.
func (r *Registry) Lookup(source, target string) (Transformer, error) {
	src, dst := normalize(source), normalize(target)
	if src == dst {
		return Identity{}, nil
	}
	r.mu.RLock()
	t, found := r.transforms[pair{src, dst}]
	rev, revFound := r.transforms[pair{dst, src}]
	r.mu.RUnlock()
	if found {
		return t, nil
	}
	if revFound {
		if inv, ok := rev.(Invertible); ok {
			return inv.Inverse()
		}
	}
	return nil, fmt.Errorf("no transform registered from %q to %q", source, target)
}

// LookupMirror returns the mirror for the template.
func (r *Registry) LookupMirror(template string) (Mirror, error) {
	r.mu.RLock()
	m, found := r.mirrors[normalize(template)]
	r.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("no mirror registered for template %q", template)
	}
	return m, nil
}

// Pairs lists registered "source->target" pairs, sorted.
func (r *Registry) Pairs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.transforms))
	for p := range r.transforms {
		out = append(out, p.source+"->"+p.target)
	}
	sort.Strings(out)
	return out
}

// Identity leaves points unchanged.
type Identity struct{}

func (Identity) Transform(ctx context.Context, pts []neuprep.Vector3d) ([]neuprep.Vector3d, error) {
	return append([]neuprep.Vector3d(nil), pts...), nil
}

func (Identity) Inverse() (Transformer, error) {
	return Identity{}, nil
}

// Skeleton returns a copy of s in the target template.
func (r *Registry) Skeleton(ctx context.Context, s *skeleton.Skeleton, target string) (*skeleton.Skeleton, error) {
	if s.Template == "" {
		return nil, fmt.Errorf("%s has no template; can't transform to %q", s, target)
	}
	t, err := r.Lookup(s.Template, target)
	if err != nil {
		return nil, err
	}
	pts, err := t.Transform(ctx, s.Points())
	if err != nil {
		return nil, fmt.Errorf("transforming %s to %s: %v", s.ID, target, err)
	}
	out := s.Clone()
	if err := out.SetPoints(pts); err != nil {
		return nil, err
	}
	out.Template = target
	return out, nil
}

// MirrorSkeleton returns the mirrored variant of s in its own template.  The
// copy is identified with the mirror suffix.
func (r *Registry) MirrorSkeleton(ctx context.Context, s *skeleton.Skeleton, suffix string) (*skeleton.Skeleton, error) {
	m, err := r.LookupMirror(s.Template)
	if err != nil {
		return nil, err
	}
	pts, err := m.Mirror(ctx, s.Points())
	if err != nil {
		return nil, fmt.Errorf("mirroring %s: %v", s.ID, err)
	}
	out := s.Mirrored(suffix)
	if err := out.SetPoints(pts); err != nil {
		return nil, err
	}
	return out, nil
}

// Points transforms a coordinate list between templates.
func (r *Registry) Points(ctx context.Context, pts []neuprep.Vector3d, source, target string) ([]neuprep.Vector3d, error) {
	t, err := r.Lookup(source, target)
	if err != nil {
		return nil, err
	}
	return t.Transform(ctx, pts)
}
