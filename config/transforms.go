package config

import (
	"fmt"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/transform"
)

// transformConfig is one [[transforms]] entry: an affine registration
// between templates given as a row-major 3x3 matrix and a translation.
type transformConfig struct {
	Source      string
	Target      string
	Matrix      []float64
	Translation []float64
}

// mirrorConfig is one [[mirrors]] entry.
type mirrorConfig struct {
	Template  string
	MidplaneX float64 `toml:"midplane_x"`
}

func (tc transformConfig) affine() (transform.Affine, error) {
	var a transform.Affine
	switch len(tc.Matrix) {
	case 0:
		a = transform.Translate(neuprep.Vector3d{})
	case 9:
		for i := 0; i < 9; i++ {
			a.M[i/3][i%3] = tc.Matrix[i]
		}
	default:
		return a, fmt.Errorf("transform %s->%s: matrix needs 9 values, got %d", tc.Source, tc.Target, len(tc.Matrix))
	}
	switch len(tc.Translation) {
	case 0:
	case 3:
		copy(a.T[:], tc.Translation)
	default:
		return a, fmt.Errorf("transform %s->%s: translation needs 3 values, got %d", tc.Source, tc.Target, len(tc.Translation))
	}
	return a, nil
}

// Registry returns the builtin transforms plus those in the configuration.
func (c *Config) Registry() (*transform.Registry, error) {
	r := transform.Builtin()
	for _, tc := range c.Transforms {
		if tc.Source == "" || tc.Target == "" {
			return nil, fmt.Errorf("transform needs both source and target templates")
		}
		a, err := tc.affine()
		if err != nil {
			return nil, err
		}
		r.Register(tc.Source, tc.Target, a)
	}
	for _, mc := range c.Mirrors {
		if mc.Template == "" {
			return nil, fmt.Errorf("mirror needs a template")
		}
		r.RegisterMirror(mc.Template, transform.Midplane{X: mc.MidplaneX})
	}
	neuprep.Debugf("Registered transforms: %v\n", r.Pairs())
	return r, nil
}
