package contact

import "github.com/armature-sim/armature/internal/model"

// LimitParams tunes the joint-limit penalty springs.
type LimitParams struct {
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
}

// DefaultLimitParams returns stiff penalty springs suitable for small
// desktop-scale mechanisms.
func DefaultLimitParams() LimitParams {
	return LimitParams{Stiffness: 1e3, Damping: 1e1}
}

// JointLimitForces computes one-sided spring-damper penalty torques for
// every bounded single-dof joint and adds them into tau. Inside the range
// the penalty is zero; beyond a bound it pushes back toward the range and,
// like the contact normal, is clamped so it never pulls a joint further
// out.
func JointLimitForces(m *model.Model, q, v []float64, p LimitParams, tau []float64) {
	for i := 0; i < m.NumLinks(); i++ {
		j := m.Joint(i)
		if j.Type.DoF() != 1 || j.Limit.Unbounded() {
			continue
		}
		pos := q[j.QIdx]
		vel := v[j.VIdx]
		switch {
		case pos > j.Limit.Max:
			f := -p.Stiffness*(pos-j.Limit.Max) - p.Damping*vel
			if f < 0 {
				tau[j.VIdx] += f
			}
		case pos < j.Limit.Min:
			f := -p.Stiffness*(pos-j.Limit.Min) - p.Damping*vel
			if f > 0 {
				tau[j.VIdx] += f
			}
		}
	}
}
