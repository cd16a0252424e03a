package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Inertia is the spatial inertia of a rigid body: total mass, center of
// mass in the body frame, and the rotational inertia tensor about the
// center of mass, expressed in body-frame orientation.
type Inertia struct {
	Mass float64
	COM  r3.Vector
	IC   mgl64.Mat3
}

// NewInertia builds a spatial inertia from mass, center-of-mass offset and
// the inertia tensor about the center of mass.
func NewInertia(mass float64, com r3.Vector, ic mgl64.Mat3) Inertia {
	return Inertia{Mass: mass, COM: com, IC: ic}
}

// PointMass returns the inertia of a point mass at offset p.
func PointMass(mass float64, p r3.Vector) Inertia {
	return Inertia{Mass: mass, COM: p}
}

// Add combines two inertias expressed in the same frame into the inertia
// of the composite body. The combined tensor is formed about the shared
// origin and shifted back to the combined center of mass.
func (in Inertia) Add(other Inertia) Inertia {
	mass := in.Mass + other.Mass
	if mass == 0 {
		return Inertia{}
	}
	com := in.COM.Mul(in.Mass).Add(other.COM.Mul(other.Mass)).Mul(1 / mass)
	io := in.AboutOrigin().Add(other.AboutOrigin())
	cx := skew(com)
	// I_c = I_o + m * cx * cx
	return Inertia{
		Mass: mass,
		COM:  com,
		IC:   io.Add(cx.Mul3(cx).Mul(mass)),
	}
}

// AboutOrigin returns the rotational inertia tensor about the body-frame
// origin (parallel-axis theorem).
func (in Inertia) AboutOrigin() mgl64.Mat3 {
	cx := skew(in.COM)
	// I_o = I_c - m * cx * cx
	shift := cx.Mul3(cx).Mul(-in.Mass)
	return in.IC.Add(shift)
}

// Apply computes the spatial momentum (or force, for an acceleration) of
// the body moving with motion vector v: f = I*v.
func (in Inertia) Apply(v Motion) Force {
	io := in.AboutOrigin()
	h := in.COM.Mul(in.Mass)
	return Force{
		Ang: rotate(io, v.Ang).Add(h.Cross(v.Lin)),
		Lin: v.Lin.Mul(in.Mass).Sub(h.Cross(v.Ang)),
	}
}

// Transform expresses the inertia in the parent frame of t, where t is the
// pose of the body frame in the parent frame.
func (in Inertia) Transform(t Transform) Inertia {
	return Inertia{
		Mass: in.Mass,
		COM:  t.Point(in.COM),
		IC:   t.R.Mul3(in.IC).Mul3(t.R.Transpose()),
	}
}

// Matrix returns the 6x6 spatial inertia matrix about the body-frame
// origin, angular block first.
func (in Inertia) Matrix() *mat.SymDense {
	io := in.AboutOrigin()
	hx := skew(in.COM.Mul(in.Mass))
	m := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			m.SetSym(i, j, io.At(i, j))
			if i == j {
				m.SetSym(3+i, 3+j, in.Mass)
			}
		}
	}
	// Off-diagonal blocks: hx (upper right) and hx^T (lower left). SymDense
	// stores the upper triangle, so set rows 0-2, columns 3-5.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetSym(i, 3+j, hx.At(i, j))
		}
	}
	return m
}
