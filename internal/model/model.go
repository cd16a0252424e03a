package model

import (
	"github.com/golang/geo/r3"

	"github.com/armature-sim/armature/internal/spatial"
)

// Link is a rigid body of the tree. Immutable after Build.
type Link struct {
	Name    string
	Inertia spatial.Inertia
	Index   int
}

// ContactPoint is a body-fixed point considered by the contact model.
type ContactPoint struct {
	Link   int
	Offset r3.Vector
}

// Model is a frozen kinematic tree. Link i is connected to its parent
// (Parent(i), or the world for i = 0) by joint i, and links are stored in
// topological order. A Model carries no mutable state.
type Model struct {
	name     string
	links    []Link
	joints   []Joint
	parent   []int
	gravity  r3.Vector
	contacts []ContactPoint
	nq, nv   int
}

// Name returns the model name from its description.
func (m *Model) Name() string { return m.name }

// NumLinks returns the number of links, including the root.
func (m *Model) NumLinks() int { return len(m.links) }

// Link returns link i.
func (m *Model) Link(i int) *Link { return &m.links[i] }

// Joint returns the parent joint of link i.
func (m *Model) Joint(i int) *Joint { return &m.joints[i] }

// Parent returns the parent link index of link i, or -1 for the root.
func (m *Model) Parent(i int) int { return m.parent[i] }

// DoF returns the dimension of the generalized velocity vector.
func (m *Model) DoF() int { return m.nv }

// PositionDim returns the dimension of the generalized position vector.
// It exceeds DoF when quaternion-valued joints are present.
func (m *Model) PositionDim() int { return m.nq }

// FloatingBase reports whether the root link is free-floating.
func (m *Model) FloatingBase() bool { return m.joints[0].Type == Floating }

// Gravity returns the gravity vector in world coordinates.
func (m *Model) Gravity() r3.Vector { return m.gravity }

// ContactPoints returns the body-fixed collidable points.
func (m *Model) ContactPoints() []ContactPoint { return m.contacts }

// LinkIndex returns the index of the named link, or -1.
func (m *Model) LinkIndex(name string) int {
	for i := range m.links {
		if m.links[i].Name == name {
			return i
		}
	}
	return -1
}

// NeutralPositions returns the zero configuration: all joint coordinates
// zero, all quaternions identity.
func (m *Model) NeutralPositions() []float64 {
	q := make([]float64, m.nq)
	for i := range m.joints {
		j := &m.joints[i]
		j.Neutral(q[j.QIdx : j.QIdx+j.Type.PositionDim()])
	}
	return q
}

// IntegratePositions advances generalized positions q by generalized
// velocities v over dt, respecting each joint's manifold structure, and
// returns the result as a new slice.
func (m *Model) IntegratePositions(q, v []float64, dt float64) []float64 {
	out := make([]float64, len(q))
	copy(out, q)
	for i := range m.joints {
		j := &m.joints[i]
		j.Integrate(
			out[j.QIdx:j.QIdx+j.Type.PositionDim()],
			v[j.VIdx:j.VIdx+j.Type.DoF()],
			dt,
		)
	}
	return out
}

// JointPositions returns the slice of q belonging to joint i.
func (m *Model) JointPositions(q []float64, i int) []float64 {
	j := &m.joints[i]
	return q[j.QIdx : j.QIdx+j.Type.PositionDim()]
}

// JointVelocities returns the slice of v belonging to joint i.
func (m *Model) JointVelocities(v []float64, i int) []float64 {
	j := &m.joints[i]
	return v[j.VIdx : j.VIdx+j.Type.DoF()]
}
