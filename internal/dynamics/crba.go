package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/spatial"
)

// MassMatrix assembles the joint-space inertia matrix H(q) with the
// composite-rigid-body algorithm. ForwardDynamics never needs it; it is
// exposed for energy computations and callers doing their own operational-
// space math.
func MassMatrix(m *model.Model, q []float64) (*mat.SymDense, error) {
	if err := kinematics.CheckPositions(m, q); err != nil {
		return nil, err
	}

	n := m.NumLinks()
	nv := m.DoF()
	if nv == 0 {
		return &mat.SymDense{}, nil
	}
	h := mat.NewSymDense(nv, nil)

	pose := make([]spatial.Transform, n)
	comp := make([]*mat.Dense, n) // composite inertia of subtree i
	for i := 0; i < n; i++ {
		j := m.Joint(i)
		pose[i] = j.Tree.Compose(j.Pose(m.JointPositions(q, i)))
		comp[i] = mat.DenseCopyOf(m.Link(i).Inertia.Matrix())
	}

	for i := n - 1; i >= 0; i-- {
		if p := m.Parent(i); p >= 0 {
			x := pose[i].Inverse().Adjoint()
			var tmp, folded mat.Dense
			tmp.Mul(comp[i], x)
			folded.Mul(x.T(), &tmp)
			comp[p].Add(comp[p], &folded)
		}

		ji := m.Joint(i)
		dof := ji.Type.DoF()
		if dof == 0 {
			continue
		}
		s := subspaceMatrix(ji.Subspace())

		// F starts as the subtree inertia seen through this joint and is
		// carried up the ancestor chain for the off-diagonal blocks.
		f := mat.NewDense(6, dof, nil)
		f.Mul(comp[i], s)

		var hii mat.Dense
		hii.Mul(s.T(), f)
		for a := 0; a < dof; a++ {
			for b := 0; b < dof; b++ {
				h.SetSym(ji.VIdx+a, ji.VIdx+b, hii.At(a, b))
			}
		}

		for j := i; m.Parent(j) >= 0; {
			x := pose[j].Inverse().Adjoint()
			var fp mat.Dense
			fp.Mul(x.T(), f)
			f = &fp
			j = m.Parent(j)

			jj := m.Joint(j)
			jdof := jj.Type.DoF()
			if jdof == 0 {
				continue
			}
			sj := subspaceMatrix(jj.Subspace())
			var hij mat.Dense
			hij.Mul(sj.T(), f)
			for a := 0; a < jdof; a++ {
				for b := 0; b < dof; b++ {
					h.SetSym(jj.VIdx+a, ji.VIdx+b, hij.At(a, b))
				}
			}
		}
	}
	return h, nil
}

// Energy returns the kinetic and potential energy of the system. Potential
// energy is measured against the world origin plane perpendicular to
// gravity.
func Energy(m *model.Model, q, v []float64) (kinetic, potential float64, err error) {
	world, err := kinematics.ForwardKinematics(m, q)
	if err != nil {
		return 0, 0, err
	}
	vel, err := kinematics.Velocities(m, q, v)
	if err != nil {
		return 0, 0, err
	}
	g := m.Gravity()
	for i := 0; i < m.NumLinks(); i++ {
		in := m.Link(i).Inertia
		kinetic += 0.5 * vel[i].Dot(in.Apply(vel[i]))
		potential -= in.Mass * g.Dot(world[i].Point(in.COM))
	}
	return kinetic, potential, nil
}
