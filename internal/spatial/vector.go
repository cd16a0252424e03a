package spatial

import (
	"math"

	"github.com/golang/geo/r3"
)

// Motion is a 6D motion vector (spatial velocity or acceleration).
type Motion struct {
	Ang r3.Vector
	Lin r3.Vector
}

// Force is a 6D force vector: a moment about the frame origin and a linear
// force.
type Force struct {
	Ang r3.Vector
	Lin r3.Vector
}

// Add returns m + n.
func (m Motion) Add(n Motion) Motion {
	return Motion{m.Ang.Add(n.Ang), m.Lin.Add(n.Lin)}
}

// Sub returns m - n.
func (m Motion) Sub(n Motion) Motion {
	return Motion{m.Ang.Sub(n.Ang), m.Lin.Sub(n.Lin)}
}

// Scale returns m scaled by s.
func (m Motion) Scale(s float64) Motion {
	return Motion{m.Ang.Mul(s), m.Lin.Mul(s)}
}

// Dot returns the scalar product of a motion vector with a force vector,
// i.e. the instantaneous power.
func (m Motion) Dot(f Force) float64 {
	return m.Ang.Dot(f.Ang) + m.Lin.Dot(f.Lin)
}

// IsValid reports whether every component is finite.
func (m Motion) IsValid() bool {
	return finiteVec(m.Ang) && finiteVec(m.Lin)
}

// Add returns f + g.
func (f Force) Add(g Force) Force {
	return Force{f.Ang.Add(g.Ang), f.Lin.Add(g.Lin)}
}

// Sub returns f - g.
func (f Force) Sub(g Force) Force {
	return Force{f.Ang.Sub(g.Ang), f.Lin.Sub(g.Lin)}
}

// Scale returns f scaled by s.
func (f Force) Scale(s float64) Force {
	return Force{f.Ang.Mul(s), f.Lin.Mul(s)}
}

// CrossMotion returns the spatial cross product v x m between two motion
// vectors, e.g. the velocity-product acceleration term.
func CrossMotion(v, m Motion) Motion {
	return Motion{
		Ang: v.Ang.Cross(m.Ang),
		Lin: v.Ang.Cross(m.Lin).Add(v.Lin.Cross(m.Ang)),
	}
}

// CrossForce returns the spatial cross product v x* f between a motion
// vector and a force vector, e.g. the gyroscopic bias force term.
func CrossForce(v Motion, f Force) Force {
	return Force{
		Ang: v.Ang.Cross(f.Ang).Add(v.Lin.Cross(f.Lin)),
		Lin: v.Ang.Cross(f.Lin),
	}
}

func finiteVec(v r3.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
