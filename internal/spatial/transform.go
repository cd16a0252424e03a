package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Transform is the pose of a child frame expressed in a parent frame: a
// point p in child coordinates maps to R*p + P in parent coordinates.
type Transform struct {
	R mgl64.Mat3
	P r3.Vector
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{R: mgl64.Ident3()}
}

// Compose chains two transforms: if t is the pose of B in A and o the pose
// of C in B, the result is the pose of C in A.
func (t Transform) Compose(o Transform) Transform {
	return Transform{
		R: t.R.Mul3(o.R),
		P: t.P.Add(rotate(t.R, o.P)),
	}
}

// Inverse returns the pose of the parent frame expressed in the child frame.
func (t Transform) Inverse() Transform {
	rt := t.R.Transpose()
	return Transform{
		R: rt,
		P: rotate(rt, t.P).Mul(-1),
	}
}

// Point maps a point from child to parent coordinates.
func (t Transform) Point(p r3.Vector) r3.Vector {
	return rotate(t.R, p).Add(t.P)
}

// Rotate applies only the rotation part to a free vector (an axis or
// direction, unaffected by translation).
func (t Transform) Rotate(v r3.Vector) r3.Vector {
	return rotate(t.R, v)
}

// Motion changes the coordinates of a motion vector from the child frame to
// the parent frame.
func (t Transform) Motion(m Motion) Motion {
	ang := rotate(t.R, m.Ang)
	return Motion{
		Ang: ang,
		Lin: rotate(t.R, m.Lin).Add(t.P.Cross(ang)),
	}
}

// Force changes the coordinates of a force vector from the child frame to
// the parent frame.
func (t Transform) Force(f Force) Force {
	lin := rotate(t.R, f.Lin)
	return Force{
		Ang: rotate(t.R, f.Ang).Add(t.P.Cross(lin)),
		Lin: lin,
	}
}

// Adjoint returns the 6x6 matrix that changes motion-vector coordinates from
// the child frame to the parent frame, with the angular component in rows
// and columns 0-2.
func (t Transform) Adjoint() *mat.Dense {
	x := mat.NewDense(6, 6, nil)
	px := skew(t.P)
	pxr := px.Mul3(t.R)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			x.Set(i, j, t.R.At(i, j))
			x.Set(3+i, 3+j, t.R.At(i, j))
			x.Set(3+i, j, pxr.At(i, j))
		}
	}
	return x
}

// rotate multiplies a rotation matrix with an r3 vector.
func rotate(r mgl64.Mat3, v r3.Vector) r3.Vector {
	out := r.Mul3x1(mgl64.Vec3{v.X, v.Y, v.Z})
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}
}

// skew returns the skew-symmetric cross-product matrix of v.
func skew(v r3.Vector) mgl64.Mat3 {
	return mat3Rows(
		r3.Vector{X: 0, Y: -v.Z, Z: v.Y},
		r3.Vector{X: v.Z, Y: 0, Z: -v.X},
		r3.Vector{X: -v.Y, Y: v.X, Z: 0},
	)
}

// mat3Rows builds a Mat3 from three row vectors (mgl64 literals are
// column-major, which is easy to get wrong inline).
func mat3Rows(a, b, c r3.Vector) mgl64.Mat3 {
	return mgl64.Mat3{
		a.X, b.X, c.X,
		a.Y, b.Y, c.Y,
		a.Z, b.Z, c.Z,
	}
}
