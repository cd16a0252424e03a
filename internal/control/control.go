// Package control provides joint-space controllers for simulation
// sessions.
package control

import (
	"github.com/armature-sim/armature/internal/dynamics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/sim"
)

// Zero applies no actuation.
type Zero struct {
	dim int
}

func NewZero(m *model.Model) *Zero {
	return &Zero{dim: m.DoF()}
}

func (z *Zero) Compute(s sim.State) []float64 {
	return make([]float64, z.dim)
}

// PID tracks per-coordinate position targets with a PID loop on the
// generalized coordinates. It assumes positions and velocities share
// indexing, so it suits fixed-base mechanisms with single-dof joints;
// quaternion coordinates have no meaningful per-coordinate error.
type PID struct {
	Kp, Ki, Kd float64
	Target     []float64

	integral []float64
	prevTime float64
	first    bool
}

func NewPID(kp, ki, kd float64, target []float64) *PID {
	return &PID{
		Kp: kp, Ki: ki, Kd: kd,
		Target:   target,
		integral: make([]float64, len(target)),
		first:    true,
	}
}

func (p *PID) Compute(s sim.State) []float64 {
	u := make([]float64, len(s.V))
	dt := s.Time - p.prevTime
	for i := range p.Target {
		if i >= len(s.Q) || i >= len(u) {
			break
		}
		err := p.Target[i] - s.Q[i]
		if !p.first && dt > 0 {
			p.integral[i] += err * dt
		}
		// The velocity is the exact error derivative for position
		// targets, no finite differencing needed.
		u[i] = p.Kp*err + p.Ki*p.integral[i] - p.Kd*s.V[i]
	}
	p.prevTime = s.Time
	p.first = false
	return u
}

func (p *PID) Reset() {
	for i := range p.integral {
		p.integral[i] = 0
	}
	p.first = true
}

// GravityCompensation cancels gravity and velocity-product forces exactly
// via inverse dynamics with zero desired acceleration. On its own it
// freezes the mechanism's drift; stacked under a PID it linearizes the
// tracking problem.
type GravityCompensation struct {
	model *model.Model
	inner sim.Controller
}

func NewGravityCompensation(m *model.Model, inner sim.Controller) *GravityCompensation {
	return &GravityCompensation{model: m, inner: inner}
}

func (g *GravityCompensation) Compute(s sim.State) []float64 {
	tau, err := dynamics.InverseDynamics(g.model, s.Q, s.V, make([]float64, g.model.DoF()), nil)
	if err != nil {
		return make([]float64, g.model.DoF())
	}
	if g.inner != nil {
		for i, u := range g.inner.Compute(s) {
			tau[i] += u
		}
	}
	return tau
}
