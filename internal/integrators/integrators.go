// Package integrators provides fixed-step time integrators for mechanism
// states. Positions live on a manifold (unit quaternions for spherical and
// floating joints), so integrators never add velocities to positions
// directly: position updates go through Model.IntegratePositions, which
// applies the quaternion exponential map and keeps orientations unit-norm
// to machine precision.
package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/armature-sim/armature/internal/model"
)

// ErrNonFinite reports that an integration step produced NaN or Inf.
var ErrNonFinite = errors.New("non-finite state")

// IntegrationError records where an integration step failed.
type IntegrationError struct {
	Method string
	Time   float64
	Err    error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integrate %s at t=%g: %v", e.Method, e.Time, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// Dynamics supplies the generalized acceleration at a state. Implemented
// by the simulation session, which layers actuation, contact and limit
// forces on top of the articulated-body solve.
type Dynamics interface {
	Acceleration(q, v []float64, t float64) ([]float64, error)
}

// Integrator advances positions and velocities by one fixed step. The
// returned slices are fresh; the inputs are not modified.
type Integrator interface {
	Name() string
	Step(m *model.Model, dyn Dynamics, q, v []float64, t, dt float64) ([]float64, []float64, error)
}

// New returns the integrator registered under name.
func New(name string) (Integrator, error) {
	switch name {
	case "semi-implicit-euler", "semi_implicit_euler", "":
		return NewSemiImplicitEuler(), nil
	case "euler", "explicit-euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	default:
		return nil, fmt.Errorf("unknown integrator %q", name)
	}
}

func finite(xs ...[]float64) bool {
	for _, x := range xs {
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func checkStep(method string, t float64, q, v []float64, err error) ([]float64, []float64, error) {
	if err != nil {
		return nil, nil, &IntegrationError{Method: method, Time: t, Err: err}
	}
	if !finite(q, v) {
		return nil, nil, &IntegrationError{Method: method, Time: t, Err: ErrNonFinite}
	}
	return q, v, nil
}
