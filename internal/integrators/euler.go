package integrators

import "github.com/armature-sim/armature/internal/model"

// SemiImplicitEuler is the default integrator: it updates the velocity
// first and advances positions with the new velocity. First order, but
// symplectic on the mechanical part of the state, so energy oscillates
// around the true value instead of drifting for conservative systems.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (s *SemiImplicitEuler) Name() string { return "semi-implicit-euler" }

func (s *SemiImplicitEuler) Step(m *model.Model, dyn Dynamics, q, v []float64, t, dt float64) ([]float64, []float64, error) {
	a, err := dyn.Acceleration(q, v, t)
	if err != nil {
		return checkStep(s.Name(), t, nil, nil, err)
	}
	vNext := make([]float64, len(v))
	for i := range v {
		vNext[i] = v[i] + dt*a[i]
	}
	qNext := m.IntegratePositions(q, vNext, dt)
	return checkStep(s.Name(), t, qNext, vNext, nil)
}

// Euler is the explicit first-order method: positions advance with the
// start-of-step velocity. Kept for comparison runs; it gains energy on
// oscillatory systems.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(m *model.Model, dyn Dynamics, q, v []float64, t, dt float64) ([]float64, []float64, error) {
	a, err := dyn.Acceleration(q, v, t)
	if err != nil {
		return checkStep(e.Name(), t, nil, nil, err)
	}
	qNext := m.IntegratePositions(q, v, dt)
	vNext := make([]float64, len(v))
	for i := range v {
		vNext[i] = v[i] + dt*a[i]
	}
	return checkStep(e.Name(), t, qNext, vNext, nil)
}
