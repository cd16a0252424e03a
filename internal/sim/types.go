// Package sim runs mechanisms through time: it owns the mutable state,
// layers actuation, contact and joint-limit forces on top of the
// articulated-body solve, and drives a fixed-step integrator under a
// context. Everything model-shaped stays immutable and shared; everything
// mutable lives in a Session.
package sim

import (
	"math"

	"github.com/armature-sim/armature/internal/model"
)

// State is a mechanism configuration at an instant: generalized positions,
// generalized velocities and the simulation clock.
type State struct {
	Q    []float64
	V    []float64
	Time float64
}

// NewState returns the model's neutral configuration at rest.
func NewState(m *model.Model) State {
	return State{
		Q: m.NeutralPositions(),
		V: make([]float64, m.DoF()),
	}
}

func (s State) Clone() State {
	c := State{
		Q:    make([]float64, len(s.Q)),
		V:    make([]float64, len(s.V)),
		Time: s.Time,
	}
	copy(c.Q, s.Q)
	copy(c.V, s.V)
	return c
}

// IsValid reports whether every coordinate is finite.
func (s State) IsValid() bool {
	for _, x := range s.Q {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	for _, x := range s.V {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Controller computes generalized actuation forces for a state. The
// returned slice has one entry per degree of freedom and is consumed
// before the next call.
type Controller interface {
	Compute(s State) []float64
}

// ControllerFunc adapts a function to the Controller interface.
type ControllerFunc func(s State) []float64

func (f ControllerFunc) Compute(s State) []float64 { return f(s) }

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(s State)
	Value() float64
	Reset()
}

// Observer is called after every accepted step.
type Observer interface {
	OnStep(s State)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s State)

func (f ObserverFunc) OnStep(s State) { f(s) }

// Config sets the run length and step size.
type Config struct {
	Dt       float64
	Duration float64
	// StopOnError makes Run return the step error instead of recording
	// it in Result.Errors. Either way a failed step ends the run.
	StopOnError bool
}

// Result collects the trajectory and summary values of a run.
type Result struct {
	States      []State
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Errors      []error
}
