// Package analysis extracts qualitative-dynamics information from runs:
// largest Lyapunov exponent, phase portraits and Poincaré sections.
package analysis

import (
	"math"

	"github.com/armature-sim/armature/internal/integrators"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/sim"
)

// LyapunovExponent estimates the largest Lyapunov exponent by the
// twin-trajectory (Benettin) method: a copy of the session is perturbed in
// its first velocity coordinate, and after every step the log separation
// growth is accumulated and the perturbed trajectory is renormalized back
// to the initial separation along the current difference direction.
// Positive values indicate chaos.
//
// The perturbation is applied in velocity rather than position so
// quaternion coordinates stay on their manifold.
func LyapunovExponent(m *model.Model, newInteg func() integrators.Integrator, q0, v0 []float64, dt, duration, perturbation float64) (float64, error) {
	ref := sim.New(m, newInteg())
	if err := ref.Reset(q0, v0); err != nil {
		return 0, err
	}

	if v0 == nil {
		v0 = make([]float64, m.DoF())
	}
	v0p := append([]float64(nil), v0...)
	v0p[0] += perturbation
	pert := sim.New(m, newInteg())
	if err := pert.Reset(q0, v0p); err != nil {
		return 0, err
	}

	d0 := perturbation
	sumLog := 0.0
	count := 0
	steps := int(math.Round(duration / dt))

	for i := 0; i < steps; i++ {
		if err := ref.Step(dt); err != nil {
			return 0, err
		}
		if err := pert.Step(dt); err != nil {
			return 0, err
		}

		a, b := ref.State(), pert.State()
		sep := separation(a, b)
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)
		count++

		scale := d0 / sep
		q := renormalized(m, a.Q, b.Q, scale)
		v := make([]float64, len(a.V))
		for j := range v {
			v[j] = a.V[j] + (b.V[j]-a.V[j])*scale
		}
		if err := pert.Reset(q, v); err != nil {
			return 0, err
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}

func separation(a, b sim.State) float64 {
	sum := 0.0
	for i := range a.Q {
		d := b.Q[i] - a.Q[i]
		sum += d * d
	}
	for i := range a.V {
		d := b.V[i] - a.V[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// renormalized interpolates positions toward the reference and restores
// unit norm on quaternion blocks.
func renormalized(m *model.Model, ref, pert []float64, scale float64) []float64 {
	q := make([]float64, len(ref))
	for i := range q {
		q[i] = ref[i] + (pert[i]-ref[i])*scale
	}
	for i := 0; i < m.NumLinks(); i++ {
		j := m.Joint(i)
		var block []float64
		switch j.Type {
		case model.Spherical:
			block = q[j.QIdx : j.QIdx+4]
		case model.Floating:
			block = q[j.QIdx+3 : j.QIdx+7]
		default:
			continue
		}
		n := math.Sqrt(block[0]*block[0] + block[1]*block[1] + block[2]*block[2] + block[3]*block[3])
		if n > 0 {
			for k := range block {
				block[k] /= n
			}
		}
	}
	return q
}
