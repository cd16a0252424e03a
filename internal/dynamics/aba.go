package dynamics

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/armature-sim/armature/internal/kinematics"
	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/spatial"
)

// ForwardDynamics computes generalized accelerations from generalized
// forces via the articulated-body algorithm: an outward pass for link
// velocities and bias terms, an inward pass folding articulated inertias
// and bias forces toward the root, and a final outward pass solving the
// joint accelerations. The whole computation is O(n) in the degrees of
// freedom, unlike assembling and inverting the mass matrix.
//
// fext, if non-nil, holds one external spatial force per link in world
// coordinates. A zero-DoF model returns an empty vector.
func ForwardDynamics(m *model.Model, q, v, tau []float64, fext []spatial.Force) ([]float64, error) {
	if err := kinematics.CheckPositions(m, q); err != nil {
		return nil, err
	}
	if err := kinematics.CheckVelocities(m, v, "velocities"); err != nil {
		return nil, err
	}
	if err := kinematics.CheckVelocities(m, tau, "forces"); err != nil {
		return nil, err
	}

	n := m.NumLinks()
	pose := make([]spatial.Transform, n)
	world := make([]spatial.Transform, n)
	vel := make([]spatial.Motion, n)
	bias := make([]spatial.Motion, n) // velocity-product acceleration c_i
	ia := make([]*mat.Dense, n)       // articulated inertia I^A_i
	pa := make([]spatial.Force, n)    // articulated bias force p^A_i
	sub := make([][]spatial.Motion, n)

	// Outward: velocities, bias accelerations, isolated inertias.
	for i := 0; i < n; i++ {
		j := m.Joint(i)
		pose[i] = j.Tree.Compose(j.Pose(m.JointPositions(q, i)))
		toBody := pose[i].Inverse()

		var vp spatial.Motion
		if p := m.Parent(i); p >= 0 {
			world[i] = world[p].Compose(pose[i])
			vp = vel[p]
		} else {
			world[i] = pose[i]
		}

		vi := toBody.Motion(vp)
		var vJ spatial.Motion
		sub[i] = j.Subspace()
		qd := m.JointVelocities(v, i)
		for k, s := range sub[i] {
			vJ = vJ.Add(s.Scale(qd[k]))
		}
		vi = vi.Add(vJ)

		vel[i] = vi
		bias[i] = spatial.CrossMotion(vi, vJ)

		in := m.Link(i).Inertia
		ia[i] = mat.DenseCopyOf(in.Matrix())
		pa[i] = spatial.CrossForce(vi, in.Apply(vi))
		if fext != nil {
			pa[i] = pa[i].Sub(world[i].Inverse().Force(fext[i]))
		}
	}

	// Inward: fold articulated quantities across each joint into the
	// parent. U = I^A S, D = S^T U, u = tau - S^T p^A - U^T c.
	bigU := make([]*mat.Dense, n)
	dInv := make([]*mat.Dense, n)
	uvec := make([]*mat.VecDense, n)

	for i := n - 1; i >= 0; i-- {
		dof := len(sub[i])
		p := m.Parent(i)

		if dof > 0 {
			s := subspaceMatrix(sub[i])
			bigU[i] = mat.NewDense(6, dof, nil)
			bigU[i].Mul(ia[i], s)

			d := mat.NewDense(dof, dof, nil)
			d.Mul(s.T(), bigU[i])
			dInv[i] = mat.NewDense(dof, dof, nil)
			if err := dInv[i].Inverse(d); err != nil {
				// D is S^T I^A S with I^A positive definite; a singular D
				// means degenerate inertia (massless leaf with a free
				// joint), which is a modeling defect surfaced here.
				return nil, err
			}

			ti := m.JointVelocities(tau, i)
			uvec[i] = mat.NewVecDense(dof, nil)
			pav := forceVec(pa[i])
			cv := motionVec(bias[i])
			var stp, utc mat.VecDense
			stp.MulVec(s.T(), pav)
			utc.MulVec(bigU[i].T(), cv)
			for k := 0; k < dof; k++ {
				uvec[i].SetVec(k, ti[k]-stp.AtVec(k)-utc.AtVec(k))
			}
		}

		if p < 0 {
			continue
		}

		// Articulated inertia and bias as seen from the parent side.
		var iaA *mat.Dense
		paA := pa[i]
		if dof > 0 {
			udi := mat.NewDense(6, dof, nil)
			udi.Mul(bigU[i], dInv[i])

			iaA = mat.NewDense(6, 6, nil)
			iaA.Mul(udi, bigU[i].T())
			iaA.Sub(ia[i], iaA)

			var iac, udu mat.VecDense
			iac.MulVec(iaA, motionVec(bias[i]))
			udu.MulVec(udi, uvec[i])
			paA = paA.Add(vecForce(&iac)).Add(vecForce(&udu))
		} else {
			iaA = ia[i]
			var iac mat.VecDense
			iac.MulVec(iaA, motionVec(bias[i]))
			paA = paA.Add(vecForce(&iac))
		}

		x := pose[i].Inverse().Adjoint() // motion: parent -> body
		var tmp, folded mat.Dense
		tmp.Mul(iaA, x)
		folded.Mul(x.T(), &tmp)
		ia[p].Add(ia[p], &folded)
		pa[p] = pa[p].Add(pose[i].Force(paA))
	}

	// Outward: solve joint accelerations. Gravity enters as a fictitious
	// upward base acceleration.
	aWorld := spatial.Motion{Lin: m.Gravity().Mul(-1)}
	acc := make([]spatial.Motion, n)
	qdd := make([]float64, m.DoF())

	for i := 0; i < n; i++ {
		toBody := pose[i].Inverse()
		var ap spatial.Motion
		if p := m.Parent(i); p >= 0 {
			ap = acc[p]
		} else {
			ap = aWorld
		}
		ai := toBody.Motion(ap).Add(bias[i])

		if dof := len(sub[i]); dof > 0 {
			var uta mat.VecDense
			uta.MulVec(bigU[i].T(), motionVec(ai))
			rhs := mat.NewVecDense(dof, nil)
			for k := 0; k < dof; k++ {
				rhs.SetVec(k, uvec[i].AtVec(k)-uta.AtVec(k))
			}
			var qi mat.VecDense
			qi.MulVec(dInv[i], rhs)

			out := m.JointVelocities(qdd, i)
			for k := 0; k < dof; k++ {
				out[k] = qi.AtVec(k)
				ai = ai.Add(sub[i][k].Scale(qi.AtVec(k)))
			}
		}
		acc[i] = ai
	}
	return qdd, nil
}

func subspaceMatrix(cols []spatial.Motion) *mat.Dense {
	s := mat.NewDense(6, len(cols), nil)
	for k, c := range cols {
		s.Set(0, k, c.Ang.X)
		s.Set(1, k, c.Ang.Y)
		s.Set(2, k, c.Ang.Z)
		s.Set(3, k, c.Lin.X)
		s.Set(4, k, c.Lin.Y)
		s.Set(5, k, c.Lin.Z)
	}
	return s
}

func motionVec(m spatial.Motion) *mat.VecDense {
	return mat.NewVecDense(6, []float64{m.Ang.X, m.Ang.Y, m.Ang.Z, m.Lin.X, m.Lin.Y, m.Lin.Z})
}

func forceVec(f spatial.Force) *mat.VecDense {
	return mat.NewVecDense(6, []float64{f.Ang.X, f.Ang.Y, f.Ang.Z, f.Lin.X, f.Lin.Y, f.Lin.Z})
}

func vecForce(v *mat.VecDense) spatial.Force {
	return spatial.Force{
		Ang: r3.Vector{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)},
		Lin: r3.Vector{X: v.AtVec(3), Y: v.AtVec(4), Z: v.AtVec(5)},
	}
}
