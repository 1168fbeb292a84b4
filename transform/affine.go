package transform

import (
	"context"
	"fmt"
	"math"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// Affine applies p' = M p + T.
type Affine struct {
	M [3][3]float64
	T neuprep.Vector3d
}

// Scale returns an affine transform that scales each axis, e.g. FlyWire voxel
// coordinates at (4, 4, 40) nm to nanometers.
func Scale(sx, sy, sz float64) Affine {
	return Affine{M: [3][3]float64{{sx, 0, 0}, {0, sy, 0}, {0, 0, sz}}}
}

// Translate returns a pure translation.
func Translate(t neuprep.Vector3d) Affine {
	return Affine{M: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, T: t}
}

// Apply transforms a single point.
func (a Affine) Apply(p neuprep.Vector3d) neuprep.Vector3d {
	var out neuprep.Vector3d
	for i := 0; i < 3; i++ {
		out[i] = a.M[i][0]*p[0] + a.M[i][1]*p[1] + a.M[i][2]*p[2] + a.T[i]
	}
	return out
}

func (a Affine) Transform(ctx context.Context, pts []neuprep.Vector3d) ([]neuprep.Vector3d, error) {
	out := make([]neuprep.Vector3d, len(pts))
	for i, p := range pts {
		out[i] = a.Apply(p)
	}
	return out, nil
}

// Then returns the affine transform that applies a and then b.
func (a Affine) Then(b Affine) Affine {
	var out Affine
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out.M[i][j] += b.M[i][k] * a.M[k][j]
			}
		}
	}
	out.T = b.Apply(a.T)
	return out
}

func (a Affine) det() float64 {
	m := a.M
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse transform or an error if M is singular.
func (a Affine) Inverse() (Transformer, error) {
	inv, err := a.invert()
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (a Affine) invert() (Affine, error) {
	d := a.det()
	if math.Abs(d) < 1e-12 {
		return Affine{}, fmt.Errorf("affine transform is singular (det %g)", d)
	}
	m := a.M
	var inv Affine
	inv.M[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / d
	inv.M[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / d
	inv.M[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / d
	inv.M[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / d
	inv.M[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / d
	inv.M[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / d
	inv.M[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / d
	inv.M[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / d
	inv.M[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / d
	// T' = -M^-1 T
	for i := 0; i < 3; i++ {
		inv.T[i] = -(inv.M[i][0]*a.T[0] + inv.M[i][1]*a.T[1] + inv.M[i][2]*a.T[2])
	}
	return inv, nil
}

// Midplane mirrors points across the plane x = X, i.e. x' = 2X - x.
type Midplane struct {
	X float64
}

func (m Midplane) Mirror(ctx context.Context, pts []neuprep.Vector3d) ([]neuprep.Vector3d, error) {
	out := make([]neuprep.Vector3d, len(pts))
	for i, p := range pts {
		out[i] = neuprep.Vector3d{2*m.X - p[0], p[1], p[2]}
	}
	return out, nil
}
