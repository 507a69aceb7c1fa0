package geom

import (
	"errors"
	"math"
)

// ErrNotOrthonormal marks a rotation block that fails the orthonormality
// tolerance. Callers treat the owning view as incomplete rather than
// renormalizing silently.
var ErrNotOrthonormal = errors.New("geom: rotation block is not orthonormal")

// OrthonormalTol is the tolerance applied when validating rotation blocks.
const OrthonormalTol = 1e-6

// Quat is a unit quaternion in (w, x, y, z) order.
type Quat struct {
	W, X, Y, Z float64
}

// Normalize returns the quaternion scaled to unit length with a canonical
// non-negative w.
func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Quat{W: 1}
	}
	out := Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
	if out.W < 0 {
		out = Quat{-out.W, -out.X, -out.Y, -out.Z}
	}
	return out
}

// RotationMatrix returns the rotation matrix represented by q.
func (q Quat) RotationMatrix() Mat3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// QuatFromMat3 converts a rotation matrix to a unit quaternion using the
// trace-based method, branching on the largest of {trace, m00, m11, m22} so
// no division runs against a near-zero term.
func QuatFromMat3(m Mat3) Quat {
	tr := m[0][0] + m[1][1] + m[2][2]

	var q Quat
	switch {
	case tr >= m[0][0] && tr >= m[1][1] && tr >= m[2][2]:
		s := 2 * math.Sqrt(1+tr)
		q = Quat{
			W: s / 4,
			X: (m[2][1] - m[1][2]) / s,
			Y: (m[0][2] - m[2][0]) / s,
			Z: (m[1][0] - m[0][1]) / s,
		}
	case m[0][0] >= m[1][1] && m[0][0] >= m[2][2]:
		s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		q = Quat{
			W: (m[2][1] - m[1][2]) / s,
			X: s / 4,
			Y: (m[0][1] + m[1][0]) / s,
			Z: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] >= m[2][2]:
		s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		q = Quat{
			W: (m[0][2] - m[2][0]) / s,
			X: (m[0][1] + m[1][0]) / s,
			Y: s / 4,
			Z: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		q = Quat{
			W: (m[1][0] - m[0][1]) / s,
			X: (m[0][2] + m[2][0]) / s,
			Y: (m[1][2] + m[2][1]) / s,
			Z: s / 4,
		}
	}
	return q.Normalize()
}

// DecomposeCameraToWorld inverts a world-to-camera [R|t] matrix into the
// camera-to-world quaternion plus translation pair. The rotation block must
// be orthonormal within OrthonormalTol: inversion relies on Rᵀ being the
// true inverse and the camera center is -Rᵀ·t.
func DecomposeCameraToWorld(m Mat34) (Quat, Vec3, error) {
	r := m.Rotation()
	if !r.IsOrthonormal(OrthonormalTol) {
		return Quat{}, Vec3{}, ErrNotOrthonormal
	}
	rt := r.Transpose()
	center := rt.MulVec(m.Translation()).Scale(-1)
	return QuatFromMat3(rt), center, nil
}
