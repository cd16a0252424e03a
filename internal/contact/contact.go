// Package contact implements the soft contact and joint-limit force model.
//
// Contacts are compliant: a one-sided spring-damper along the terrain
// normal and a smooth, friction-cone-bounded tangential force driven by a
// persistent material-deformation state. Everything is a smooth function
// of the inputs, so the model composes with gradient-based tooling; the
// price is that bodies sink slightly into the terrain at rest, tunable via
// the stiffness and damping parameters.
package contact

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
)

// SoftParams tunes the compliant contact force law.
type SoftParams struct {
	// Stiffness and Damping act along the contact normal.
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	// TangentStiffness and TangentDamping act on the tangential material
	// deformation.
	TangentStiffness float64 `yaml:"tangent_stiffness"`
	TangentDamping   float64 `yaml:"tangent_damping"`
	// Friction is the Coulomb friction coefficient bounding the
	// tangential force at mu times the normal force.
	Friction float64 `yaml:"friction"`
}

// DefaultSoftParams returns parameters that hold a ~1 kg body with
// millimeter-scale penetration.
func DefaultSoftParams() SoftParams {
	return SoftParams{
		Stiffness:        1e4,
		Damping:          2e2,
		TangentStiffness: 1e4,
		TangentDamping:   2e2,
		Friction:         0.5,
	}
}

// EstimateParams derives contact parameters from the model: stiffness such
// that activePoints points carry the model's weight at maxPenetration, and
// damping for the given dimensionless damping ratio. A starting point, not
// a calibration.
func EstimateParams(m *model.Model, maxPenetration float64, activePoints int, dampingRatio, friction float64) SoftParams {
	totalMass := 0.0
	for i := 0; i < m.NumLinks(); i++ {
		totalMass += m.Link(i).Inertia.Mass
	}
	if activePoints < 1 {
		activePoints = 1
	}
	g := m.Gravity().Norm()
	k := totalMass * g / (float64(activePoints) * maxPenetration)
	d := 2 * dampingRatio * math.Sqrt(k*totalMass/float64(activePoints))
	return SoftParams{
		Stiffness:        k,
		Damping:          d,
		TangentStiffness: k,
		TangentDamping:   d,
		Friction:         friction,
	}
}

// State is the per-point persistent contact state: the tangential material
// deformation that carries static friction across steps. It belongs to a
// single simulation session and is reset with it.
type State struct {
	Deformation []r3.Vector
}

// NewState allocates deformation storage for every collidable point of the
// model.
func NewState(m *model.Model) *State {
	return &State{Deformation: make([]r3.Vector, len(m.ContactPoints()))}
}

// Reset zeroes all deformations.
func (s *State) Reset() {
	for i := range s.Deformation {
		s.Deformation[i] = r3.Vector{}
	}
}

// Advance integrates the deformation rates over dt (explicit Euler; the
// deformation dynamics are heavily damped and tolerate it).
func (s *State) Advance(rates []r3.Vector, dt float64) {
	for i := range s.Deformation {
		s.Deformation[i] = s.Deformation[i].Add(rates[i].Mul(dt))
	}
}

// PointForce evaluates the soft contact law for one point: world position,
// world linear velocity and current tangential deformation in, world force
// and deformation rate out.
//
// The normal force is a one-sided spring-damper: zero at or above the
// surface, and never negative (the ground cannot pull). The tangential
// force is the deformation spring scaled by tanh(r)/r with
// r = |raw| / (mu * fn), a smooth cone saturation: the force stays
// strictly inside the friction cone and approaches the raw sticking force
// quadratically (relative error r^2/3) for small r.
func PointForce(p SoftParams, terrain Terrain, pos, vel, deformation r3.Vector) (r3.Vector, r3.Vector) {
	n := terrain.Normal(pos.X, pos.Y)
	depth := terrain.Height(pos.X, pos.Y) - pos.Z

	relax := -p.TangentStiffness / math.Max(p.TangentDamping, 1e-12)
	if depth <= 0 {
		// Airborne: no force, deformation relaxes to zero.
		return r3.Vector{}, deformation.Mul(relax)
	}

	depthRate := -vel.Dot(n)
	fn := p.Stiffness*depth + p.Damping*depthRate
	if fn < 0 {
		fn = 0
	}

	vt := vel.Sub(n.Mul(vel.Dot(n)))
	raw := deformation.Mul(-p.TangentStiffness).Sub(vt.Mul(p.TangentDamping))

	var ft r3.Vector
	var rate r3.Vector
	bound := p.Friction * fn
	if bound <= 0 || raw.Norm() == 0 {
		rate = deformation.Mul(relax)
	} else {
		r := raw.Norm() / bound
		ft = raw.Mul(math.Tanh(r) / r)
		// Deformation rate consistent with the applied force, so the
		// spring force tracks the saturated value instead of winding up.
		rate = ft.Add(deformation.Mul(p.TangentStiffness)).Mul(-1 / p.TangentDamping)
	}

	return n.Mul(fn).Add(ft), rate
}

// GeneralizedForces evaluates every collidable point of the model against
// the terrain and maps the resulting world forces into generalized forces
// via the point Jacobians. It returns the force vector and the per-point
// deformation rates the caller integrates into st.
func GeneralizedForces(m *model.Model, q, v []float64, st *State, p SoftParams, terrain Terrain) ([]float64, []r3.Vector, error) {
	tau := make([]float64, m.DoF())
	pts := m.ContactPoints()
	rates := make([]r3.Vector, len(pts))
	if len(pts) == 0 {
		return tau, rates, nil
	}

	pos, vel, err := kinematics.ContactPointStates(m, q, v)
	if err != nil {
		return nil, nil, err
	}
	for i, cp := range pts {
		f, rate := PointForce(p, terrain, pos[i], vel[i], st.Deformation[i])
		rates[i] = rate
		if f == (r3.Vector{}) {
			continue
		}
		jac, err := kinematics.PointJacobian(m, q, cp.Link, cp.Offset)
		if err != nil {
			return nil, nil, err
		}
		for c := 0; c < m.DoF(); c++ {
			tau[c] += jac.At(0, c)*f.X + jac.At(1, c)*f.Y + jac.At(2, c)*f.Z
		}
	}
	return tau, rates, nil
}
