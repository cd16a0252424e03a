// Package metrics provides run-level summary metrics for simulation
// sessions. Each metric accumulates over observed states and reduces to a
// single value in the run result.
package metrics

import (
	"math"

	"github.com/armature-sim/armature/internal/contact"
	"github.com/armature-sim/armature/internal/dynamics"
	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/sim"
)

// EnergyDrift tracks the largest relative deviation of total mechanical
// energy from its value at the first observed state.
type EnergyDrift struct {
	model    *model.Model
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(m *model.Model) *EnergyDrift {
	return &EnergyDrift{model: m}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(s sim.State) {
	ke, pe, err := dynamics.Energy(e.model, s.Q, s.V)
	if err != nil {
		return
	}
	total := ke + pe
	if e.samples == 0 {
		e.initial = total
	} else if e.initial != 0 {
		if drift := math.Abs(total-e.initial) / math.Abs(e.initial); drift > e.maxDrift {
			e.maxDrift = drift
		}
	}
	e.samples++
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// QuaternionNorm tracks the largest deviation of any orientation
// coordinate block from unit norm. For exp-map integration this stays at
// machine precision; growth indicates state corruption.
type QuaternionNorm struct {
	model *model.Model
	max   float64
}

func NewQuaternionNorm(m *model.Model) *QuaternionNorm {
	return &QuaternionNorm{model: m}
}

func (q *QuaternionNorm) Name() string { return "quaternion_norm_error" }

func (q *QuaternionNorm) Observe(s sim.State) {
	for i := 0; i < q.model.NumLinks(); i++ {
		j := q.model.Joint(i)
		var quat []float64
		switch j.Type {
		case model.Spherical:
			quat = s.Q[j.QIdx : j.QIdx+4]
		case model.Floating:
			quat = s.Q[j.QIdx+3 : j.QIdx+7]
		default:
			continue
		}
		norm := math.Sqrt(quat[0]*quat[0] + quat[1]*quat[1] + quat[2]*quat[2] + quat[3]*quat[3])
		if dev := math.Abs(norm - 1); dev > q.max {
			q.max = dev
		}
	}
}

func (q *QuaternionNorm) Value() float64 { return q.max }

func (q *QuaternionNorm) Reset() { q.max = 0 }

// MaxPenetration tracks the deepest terrain penetration of any collidable
// point, a direct readout of how hard the contact springs are being worked.
type MaxPenetration struct {
	model   *model.Model
	terrain contact.Terrain
	max     float64
}

func NewMaxPenetration(m *model.Model, t contact.Terrain) *MaxPenetration {
	return &MaxPenetration{model: m, terrain: t}
}

func (p *MaxPenetration) Name() string { return "max_penetration" }

func (p *MaxPenetration) Observe(s sim.State) {
	pos, _, err := kinematics.ContactPointStates(p.model, s.Q, s.V)
	if err != nil {
		return
	}
	for _, pt := range pos {
		if depth := p.terrain.Height(pt.X, pt.Y) - pt.Z; depth > p.max {
			p.max = depth
		}
	}
}

func (p *MaxPenetration) Value() float64 { return p.max }

func (p *MaxPenetration) Reset() { p.max = 0 }

// PeakVelocity tracks the largest absolute generalized velocity seen.
type PeakVelocity struct {
	max float64
}

func NewPeakVelocity() *PeakVelocity { return &PeakVelocity{} }

func (p *PeakVelocity) Name() string { return "peak_velocity" }

func (p *PeakVelocity) Observe(s sim.State) {
	for _, v := range s.V {
		if a := math.Abs(v); a > p.max {
			p.max = a
		}
	}
}

func (p *PeakVelocity) Value() float64 { return p.max }

func (p *PeakVelocity) Reset() { p.max = 0 }
