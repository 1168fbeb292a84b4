// Package request defines the explicit request variants accepted by the
// neuron update workflow.  The caller always names the variant; nothing is
// inferred from the shape of the payload.
package request

import (
	"fmt"
	"strings"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

// Kind tags the payload carried by a Request.
type Kind uint8

const (
	Unknown Kind = iota
	ShapeIdentifierList
	CoordinateList
	NeuronCollection
)

var kindNames = map[Kind]string{
	ShapeIdentifierList: "ids",
	CoordinateList:      "coordinates",
	NeuronCollection:    "neurons",
}

func (k Kind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return "unknown"
}

// ParseKind returns the Kind for its JSON tag.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Unknown, fmt.Errorf("unknown request kind %q", s)
}

// Request asks for a set of neurons to be (re)processed.  Exactly one payload
// matching Kind is set.
type Request struct {
	Kind Kind

	// ShapeIdentifierList
	IDs neuprep.Identifiers

	// CoordinateList: points in Template space that locate neurons.
	Points   []neuprep.Vector3d
	Template string

	// NeuronCollection: skeletons already in hand.
	Neurons skeleton.Collection

	// Mirror overrides the configured mirror default when non-nil.
	Mirror *bool
}

func Identifiers(ids ...neuprep.Identifier) Request {
	return Request{Kind: ShapeIdentifierList, IDs: ids}
}

func Coordinates(template string, pts ...neuprep.Vector3d) Request {
	return Request{Kind: CoordinateList, Points: pts, Template: template}
}

func Neurons(skels ...*skeleton.Skeleton) Request {
	return Request{Kind: NeuronCollection, Neurons: skeleton.NewCollection(skels...)}
}

func (r Request) String() string {
	switch r.Kind {
	case ShapeIdentifierList:
		return fmt.Sprintf("%s request (%d ids)", r.Kind, len(r.IDs))
	case CoordinateList:
		return fmt.Sprintf("%s request (%d points in %s)", r.Kind, len(r.Points), r.Template)
	case NeuronCollection:
		return fmt.Sprintf("%s request (%d skeletons)", r.Kind, len(r.Neurons))
	default:
		return "unknown request"
	}
}

// MirrorOr returns the request's mirror override or the given default.
func (r Request) MirrorOr(def bool) bool {
	if r.Mirror == nil {
		return def
	}
	return *r.Mirror
}

// Validate checks that the request carries exactly the payload for its kind.
func (r Request) Validate() error {
	hasIDs, hasPts, hasNeurons := len(r.IDs) > 0, len(r.Points) > 0, len(r.Neurons) > 0
	switch r.Kind {
	case ShapeIdentifierList:
		if !hasIDs || hasPts || hasNeurons {
			return fmt.Errorf("%s request must carry only identifiers", r.Kind)
		}
		for _, id := range r.IDs {
			if strings.TrimSpace(string(id)) == "" {
				return fmt.Errorf("blank identifier in %s", r)
			}
		}
	case CoordinateList:
		if !hasPts || hasIDs || hasNeurons {
			return fmt.Errorf("%s request must carry only points", r.Kind)
		}
		if r.Template == "" {
			return fmt.Errorf("%s request needs the template of its points", r.Kind)
		}
	case NeuronCollection:
		if !hasNeurons || hasIDs || hasPts {
			return fmt.Errorf("%s request must carry only skeletons", r.Kind)
		}
		for id, s := range r.Neurons {
			if id != s.ID {
				return fmt.Errorf("collection key %q does not match skeleton %s", id, s.ID)
			}
			if err := s.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("request kind not set")
	}
	return nil
}
