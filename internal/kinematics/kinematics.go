// Package kinematics computes link poses, spatial velocities and Jacobians
// for a frozen model. All functions are deterministic and side-effect free;
// the model may be shared across goroutines.
package kinematics

import (
	"github.com/golang/geo/r3"

	"github.com/armature-sim/armature/internal/model"
	"github.com/armature-sim/armature/internal/spatial"
)

// localPoses returns, per link, the pose of the link frame in its parent's
// frame for the given generalized positions.
func localPoses(m *model.Model, q []float64) []spatial.Transform {
	poses := make([]spatial.Transform, m.NumLinks())
	for i := 0; i < m.NumLinks(); i++ {
		j := m.Joint(i)
		poses[i] = j.Tree.Compose(j.Pose(m.JointPositions(q, i)))
	}
	return poses
}

// ForwardKinematics returns the world pose of every link, walking the tree
// in topological order and composing each link's local transform with its
// parent's world pose.
func ForwardKinematics(m *model.Model, q []float64) ([]spatial.Transform, error) {
	if err := CheckPositions(m, q); err != nil {
		return nil, err
	}
	local := localPoses(m, q)
	world := make([]spatial.Transform, m.NumLinks())
	for i := 0; i < m.NumLinks(); i++ {
		if p := m.Parent(i); p >= 0 {
			world[i] = world[p].Compose(local[i])
		} else {
			world[i] = local[i]
		}
	}
	return world, nil
}

// Velocities returns the spatial velocity of every link expressed in its
// own frame, given generalized positions and velocities.
func Velocities(m *model.Model, q, v []float64) ([]spatial.Motion, error) {
	if err := CheckPositions(m, q); err != nil {
		return nil, err
	}
	if err := CheckVelocities(m, v, "velocities"); err != nil {
		return nil, err
	}
	local := localPoses(m, q)
	vel := make([]spatial.Motion, m.NumLinks())
	for i := 0; i < m.NumLinks(); i++ {
		var vi spatial.Motion
		if p := m.Parent(i); p >= 0 {
			vi = local[i].Inverse().Motion(vel[p])
		}
		cols := m.Joint(i).Subspace()
		qd := m.JointVelocities(v, i)
		for k, s := range cols {
			vi = vi.Add(s.Scale(qd[k]))
		}
		vel[i] = vi
	}
	return vel, nil
}

// PointKinematics returns the world position and world-frame linear
// velocity of a body-fixed point on the given link.
func PointKinematics(m *model.Model, q, v []float64, link int, offset r3.Vector) (r3.Vector, r3.Vector, error) {
	world, err := ForwardKinematics(m, q)
	if err != nil {
		return r3.Vector{}, r3.Vector{}, err
	}
	vel, err := Velocities(m, q, v)
	if err != nil {
		return r3.Vector{}, r3.Vector{}, err
	}
	pos := world[link].Point(offset)
	lin := vel[link].Lin.Add(vel[link].Ang.Cross(offset))
	return pos, world[link].Rotate(lin), nil
}

// ContactPointStates returns the world position and velocity of every
// collidable point the model carries, sharing one kinematics pass.
func ContactPointStates(m *model.Model, q, v []float64) ([]r3.Vector, []r3.Vector, error) {
	world, err := ForwardKinematics(m, q)
	if err != nil {
		return nil, nil, err
	}
	vel, err := Velocities(m, q, v)
	if err != nil {
		return nil, nil, err
	}
	pts := m.ContactPoints()
	pos := make([]r3.Vector, len(pts))
	linVel := make([]r3.Vector, len(pts))
	for i, cp := range pts {
		pos[i] = world[cp.Link].Point(cp.Offset)
		lin := vel[cp.Link].Lin.Add(vel[cp.Link].Ang.Cross(cp.Offset))
		linVel[i] = world[cp.Link].Rotate(lin)
	}
	return pos, linVel, nil
}
