package model

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/armature-sim/armature/internal/spatial"
)

// JointType enumerates the supported joint variants. The set is closed:
// every switch over it in this module handles all five cases.
type JointType int

const (
	Fixed JointType = iota
	Revolute
	Prismatic
	Spherical
	Floating
)

var jointTypeNames = map[JointType]string{
	Fixed:     "fixed",
	Revolute:  "revolute",
	Prismatic: "prismatic",
	Spherical: "spherical",
	Floating:  "floating",
}

func (t JointType) String() string {
	if s, ok := jointTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseJointType maps a description string to a JointType.
func ParseJointType(s string) (JointType, bool) {
	for t, name := range jointTypeNames {
		if name == s {
			return t, true
		}
	}
	return Fixed, false
}

// PositionDim returns the number of generalized position coordinates the
// joint contributes. Quaternion-valued joints carry one more position
// coordinate than they have degrees of freedom.
func (t JointType) PositionDim() int {
	switch t {
	case Fixed:
		return 0
	case Revolute, Prismatic:
		return 1
	case Spherical:
		return 4 // unit quaternion wxyz
	case Floating:
		return 7 // translation xyz + unit quaternion wxyz
	}
	return 0
}

// DoF returns the number of generalized velocity coordinates.
func (t JointType) DoF() int {
	switch t {
	case Fixed:
		return 0
	case Revolute, Prismatic:
		return 1
	case Spherical:
		return 3
	case Floating:
		return 6
	}
	return 0
}

// Limit bounds a single joint coordinate. The zero value means unbounded.
type Limit struct {
	Min float64
	Max float64
}

// Unbounded reports whether the limit imposes no constraint.
func (l Limit) Unbounded() bool {
	return l.Min == 0 && l.Max == 0 || math.IsInf(l.Min, -1) && math.IsInf(l.Max, 1)
}

// Joint connects link i to its parent. Immutable after Build.
type Joint struct {
	Name  string
	Type  JointType
	Axis  r3.Vector         // unit axis, revolute and prismatic only
	Tree  spatial.Transform // pose of the joint frame in the parent link frame
	Limit Limit

	// Offsets into the generalized position and velocity vectors,
	// assigned by Build.
	QIdx int
	VIdx int
}

// Subspace returns the columns of the joint motion subspace S, expressed
// in the child link frame. One column per degree of freedom, so velocity
// across the joint is S * qdot.
func (j *Joint) Subspace() []spatial.Motion {
	switch j.Type {
	case Fixed:
		return nil
	case Revolute:
		return []spatial.Motion{{Ang: j.Axis}}
	case Prismatic:
		return []spatial.Motion{{Lin: j.Axis}}
	case Spherical:
		return []spatial.Motion{
			{Ang: r3.Vector{X: 1}},
			{Ang: r3.Vector{Y: 1}},
			{Ang: r3.Vector{Z: 1}},
		}
	case Floating:
		return []spatial.Motion{
			{Ang: r3.Vector{X: 1}},
			{Ang: r3.Vector{Y: 1}},
			{Ang: r3.Vector{Z: 1}},
			{Lin: r3.Vector{X: 1}},
			{Lin: r3.Vector{Y: 1}},
			{Lin: r3.Vector{Z: 1}},
		}
	}
	return nil
}

// Pose returns the variable part of the joint transform: the pose of the
// child link frame in the joint frame, given the joint's own position
// coordinates q (length PositionDim).
func (j *Joint) Pose(q []float64) spatial.Transform {
	switch j.Type {
	case Fixed:
		return spatial.Identity()
	case Revolute:
		return spatial.Transform{
			R: spatial.QuatToMat3(spatial.QuatFromAxisAngle(j.Axis, q[0])),
		}
	case Prismatic:
		t := spatial.Identity()
		t.P = j.Axis.Mul(q[0])
		return t
	case Spherical:
		return spatial.Transform{
			R: spatial.QuatToMat3(quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}),
		}
	case Floating:
		return spatial.Transform{
			R: spatial.QuatToMat3(quat.Number{Real: q[3], Imag: q[4], Jmag: q[5], Kmag: q[6]}),
			P: r3.Vector{X: q[0], Y: q[1], Z: q[2]},
		}
	}
	return spatial.Identity()
}

// Neutral writes the joint's zero configuration into q (length
// PositionDim): zeros everywhere except identity quaternions.
func (j *Joint) Neutral(q []float64) {
	for i := range q {
		q[i] = 0
	}
	switch j.Type {
	case Spherical:
		q[0] = 1
	case Floating:
		q[3] = 1
	}
}

// Integrate advances the joint's position coordinates q by its velocity
// coordinates v over dt, in place. Quaternion coordinates use the
// exponential map; everything else is additive.
func (j *Joint) Integrate(q, v []float64, dt float64) {
	switch j.Type {
	case Fixed:
	case Revolute, Prismatic:
		q[0] += v[0] * dt
	case Spherical:
		qq := quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}
		omega := r3.Vector{X: v[0], Y: v[1], Z: v[2]}
		qq = spatial.IntegrateQuat(qq, omega, dt)
		q[0], q[1], q[2], q[3] = qq.Real, qq.Imag, qq.Jmag, qq.Kmag
	case Floating:
		qq := quat.Number{Real: q[3], Imag: q[4], Jmag: q[5], Kmag: q[6]}
		omega := r3.Vector{X: v[0], Y: v[1], Z: v[2]}
		// Linear velocity is expressed in the child frame; rotate it to the
		// world before moving the translation.
		vel := spatial.RotateByQuat(qq, r3.Vector{X: v[3], Y: v[4], Z: v[5]})
		q[0] += vel.X * dt
		q[1] += vel.Y * dt
		q[2] += vel.Z * dt
		qq = spatial.IntegrateQuat(qq, omega, dt)
		q[3], q[4], q[5], q[6] = qq.Real, qq.Imag, qq.Jmag, qq.Kmag
	}
}
