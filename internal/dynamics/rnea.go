package dynamics

import (
	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/spatial"
)

// InverseDynamics computes the generalized forces that produce the given
// generalized accelerations, via the recursive Newton-Euler algorithm: an
// outward pass propagating velocities and accelerations, an inward pass
// accumulating net spatial forces and projecting them onto the joint
// motion subspaces.
//
// fext, if non-nil, holds one external spatial force per link in world
// coordinates (moments about the world origin); contact and limit forces
// arrive through it. A zero-DoF model returns an empty vector.
func InverseDynamics(m *model.Model, q, v, a []float64, fext []spatial.Force) ([]float64, error) {
	if err := kinematics.CheckPositions(m, q); err != nil {
		return nil, err
	}
	if err := kinematics.CheckVelocities(m, v, "velocities"); err != nil {
		return nil, err
	}
	if err := kinematics.CheckVelocities(m, a, "accelerations"); err != nil {
		return nil, err
	}

	n := m.NumLinks()
	pose := make([]spatial.Transform, n)  // link i in parent frame
	world := make([]spatial.Transform, n) // link i in world frame
	vel := make([]spatial.Motion, n)
	acc := make([]spatial.Motion, n)
	force := make([]spatial.Force, n)

	// The base "accelerates" upward at -g, which folds gravity into every
	// link without a separate gravity term.
	aWorld := spatial.Motion{Lin: m.Gravity().Mul(-1)}

	for i := 0; i < n; i++ {
		j := m.Joint(i)
		pose[i] = j.Tree.Compose(j.Pose(m.JointPositions(q, i)))
		toBody := pose[i].Inverse()

		var vp, ap spatial.Motion
		if p := m.Parent(i); p >= 0 {
			world[i] = world[p].Compose(pose[i])
			vp = vel[p]
			ap = acc[p]
		} else {
			world[i] = pose[i]
			ap = aWorld
		}

		vi := toBody.Motion(vp)
		ai := toBody.Motion(ap)

		var vJ spatial.Motion
		cols := j.Subspace()
		qd := m.JointVelocities(v, i)
		qdd := m.JointVelocities(a, i)
		for k, s := range cols {
			vJ = vJ.Add(s.Scale(qd[k]))
			ai = ai.Add(s.Scale(qdd[k]))
		}
		vi = vi.Add(vJ)
		ai = ai.Add(spatial.CrossMotion(vi, vJ))

		vel[i] = vi
		acc[i] = ai

		in := m.Link(i).Inertia
		fi := in.Apply(ai).Add(spatial.CrossForce(vi, in.Apply(vi)))
		if fext != nil {
			fi = fi.Sub(world[i].Inverse().Force(fext[i]))
		}
		force[i] = fi
	}

	tau := make([]float64, m.DoF())
	for i := n - 1; i >= 0; i-- {
		j := m.Joint(i)
		out := m.JointVelocities(tau, i)
		for k, s := range j.Subspace() {
			out[k] = s.Dot(force[i])
		}
		if p := m.Parent(i); p >= 0 {
			force[p] = force[p].Add(pose[i].Force(force[i]))
		}
	}
	return tau, nil
}

// BiasForces returns the Coriolis, centrifugal and gravity terms C(q, v):
// the generalized forces needed to produce zero acceleration.
func BiasForces(m *model.Model, q, v []float64) ([]float64, error) {
	return InverseDynamics(m, q, v, make([]float64, m.DoF()), nil)
}
