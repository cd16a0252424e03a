package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// QuatFromAxisAngle returns the unit quaternion rotating by angle (radians)
// about axis. The axis need not be normalized.
func QuatFromAxisAngle(axis r3.Vector, angle float64) quat.Number {
	n := axis.Norm()
	if n == 0 {
		return quat.Number{Real: 1}
	}
	s := math.Sin(angle/2) / n
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

// QuatToMat3 converts a unit quaternion to a rotation matrix.
func QuatToMat3(q quat.Number) mgl64.Mat3 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat3Rows(
		r3.Vector{X: 1 - 2*(y*y+z*z), Y: 2 * (x*y - w*z), Z: 2 * (x*z + w*y)},
		r3.Vector{X: 2 * (x*y + w*z), Y: 1 - 2*(x*x+z*z), Z: 2 * (y*z - w*x)},
		r3.Vector{X: 2 * (x*z - w*y), Y: 2 * (y*z + w*x), Z: 1 - 2*(x*x+y*y)},
	)
}

// QuatNormalize rescales q to unit norm. A zero quaternion becomes the
// identity rotation.
func QuatNormalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// IntegrateQuat advances a unit orientation quaternion by a body-frame
// angular velocity over dt using the quaternion exponential map, which
// preserves unit norm up to rounding (the result is renormalized to remove
// the residual drift).
func IntegrateQuat(q quat.Number, omega r3.Vector, dt float64) quat.Number {
	half := omega.Mul(dt / 2)
	theta := half.Norm()
	var dq quat.Number
	if theta < 1e-12 {
		// Small-angle series keeps the derivative well defined at omega = 0.
		dq = quat.Number{Real: 1, Imag: half.X, Jmag: half.Y, Kmag: half.Z}
	} else {
		s := math.Sin(theta) / theta
		dq = quat.Number{
			Real: math.Cos(theta),
			Imag: half.X * s,
			Jmag: half.Y * s,
			Kmag: half.Z * s,
		}
	}
	return QuatNormalize(quat.Mul(q, dq))
}

// RotateByQuat rotates v by the unit quaternion q.
func RotateByQuat(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	out := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: out.Imag, Y: out.Jmag, Z: out.Kmag}
}
