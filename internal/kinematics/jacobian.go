package kinematics

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/armature-sim/armature/internal/model"
)

// Jacobian returns the 6 x DoF geometric Jacobian of the given link in
// world coordinates (angular rows first): multiplying it by the
// generalized velocities yields the link's spatial velocity expressed at
// the world origin.
func Jacobian(m *model.Model, q []float64, link int) (*mat.Dense, error) {
	if err := CheckPositions(m, q); err != nil {
		return nil, err
	}
	world, err := ForwardKinematics(m, q)
	if err != nil {
		return nil, err
	}

	jac := mat.NewDense(6, m.DoF(), nil)
	if m.DoF() == 0 {
		return jac, nil
	}
	for i := link; i >= 0; i = m.Parent(i) {
		j := m.Joint(i)
		for k, s := range j.Subspace() {
			col := world[i].Motion(s)
			jac.Set(0, j.VIdx+k, col.Ang.X)
			jac.Set(1, j.VIdx+k, col.Ang.Y)
			jac.Set(2, j.VIdx+k, col.Ang.Z)
			jac.Set(3, j.VIdx+k, col.Lin.X)
			jac.Set(4, j.VIdx+k, col.Lin.Y)
			jac.Set(5, j.VIdx+k, col.Lin.Z)
		}
	}
	return jac, nil
}

// PointJacobian returns the 3 x DoF Jacobian of the world-frame linear
// velocity of a body-fixed point: the spatial Jacobian shifted to the
// point's world position.
func PointJacobian(m *model.Model, q []float64, link int, offset r3.Vector) (*mat.Dense, error) {
	spatialJac, err := Jacobian(m, q, link)
	if err != nil {
		return nil, err
	}
	world, err := ForwardKinematics(m, q)
	if err != nil {
		return nil, err
	}
	p := world[link].Point(offset)

	jac := mat.NewDense(3, m.DoF(), nil)
	for c := 0; c < m.DoF(); c++ {
		ang := r3.Vector{X: spatialJac.At(0, c), Y: spatialJac.At(1, c), Z: spatialJac.At(2, c)}
		lin := r3.Vector{X: spatialJac.At(3, c), Y: spatialJac.At(4, c), Z: spatialJac.At(5, c)}
		vp := lin.Add(ang.Cross(p))
		jac.Set(0, c, vp.X)
		jac.Set(1, c, vp.Y)
		jac.Set(2, c, vp.Z)
	}
	return jac, nil
}
