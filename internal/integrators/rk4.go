package integrators

import "github.com/armature-sim/armature/internal/model"

// RK4 is the classical fourth-order Runge-Kutta method, lifted to the
// position manifold: each stage position is an exponential-map update from
// the step's start, and the combined position increment is applied the
// same way. Orientations therefore stay unit quaternions without any
// renormalization pass.
type RK4 struct {
	vAvg, aAvg, vs, as []float64
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.vAvg) != n {
		r.vAvg = make([]float64, n)
		r.aAvg = make([]float64, n)
		r.vs = make([]float64, n)
		r.as = make([]float64, n)
	}
}

func (r *RK4) Step(m *model.Model, dyn Dynamics, q, v []float64, t, dt float64) ([]float64, []float64, error) {
	n := len(v)
	r.ensureScratch(n)

	accumulate := func(vi, ai []float64, w float64) {
		for i := 0; i < n; i++ {
			r.vAvg[i] += w * vi[i]
			r.aAvg[i] += w * ai[i]
		}
	}
	for i := 0; i < n; i++ {
		r.vAvg[i], r.aAvg[i] = 0, 0
	}

	// Stage 1 at the step start.
	a1, err := dyn.Acceleration(q, v, t)
	if err != nil {
		return checkStep(r.Name(), t, nil, nil, err)
	}
	accumulate(v, a1, 1.0/6)

	// Stage 2 and 3 at the midpoint, stage 4 at the full step. Each stage
	// position is reached from q with the previous stage velocity.
	vPrev, aPrev := v, a1
	for _, stage := range []struct {
		c, w float64
	}{{0.5, 2.0 / 6}, {0.5, 2.0 / 6}, {1, 1.0 / 6}} {
		qs := m.IntegratePositions(q, vPrev, stage.c*dt)
		for i := 0; i < n; i++ {
			r.vs[i] = v[i] + stage.c*dt*aPrev[i]
		}
		ai, err := dyn.Acceleration(qs, r.vs, t+stage.c*dt)
		if err != nil {
			return checkStep(r.Name(), t, nil, nil, err)
		}
		accumulate(r.vs, ai, stage.w)
		copy(r.as, ai)
		vPrev, aPrev = r.vs, r.as
	}

	qNext := m.IntegratePositions(q, r.vAvg, dt)
	vNext := make([]float64, n)
	for i := 0; i < n; i++ {
		vNext[i] = v[i] + dt*r.aAvg[i]
	}
	return checkStep(r.Name(), t, qNext, vNext, nil)
}
