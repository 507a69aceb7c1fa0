package geom

import "math"

// Pose is a camera placement: a world-space position plus a camera-to-world
// rotation. Poses are immutable once produced; every sampling policy points
// the camera at the scene origin, so the rotation is derived from the
// position alone.
type Pose struct {
	Position Vec3
	Rotation Mat3
}

// LookAt builds the pose of a camera sitting at position and aimed at
// target.
func LookAt(position, target Vec3) Pose {
	return Pose{
		Position: position,
		Rotation: LookAtRotation(position, target),
	}
}

// LookAtRotation returns the camera-to-world rotation for a camera at
// position aimed at target, using the -Z forward / Y up camera convention
// with world +Z as the up hint. When the view direction is parallel to
// world Z the up hint falls back to world +Y.
func LookAtRotation(position, target Vec3) Mat3 {
	dir := target.Sub(position).Normalize()
	zAxis := dir.Scale(-1)

	up := NewVec3(0, 0, 1)
	yAxis := up.Sub(zAxis.Scale(up.Dot(zAxis)))
	if yAxis.Length() < 1e-9 {
		up = NewVec3(0, 1, 0)
		yAxis = up.Sub(zAxis.Scale(up.Dot(zAxis)))
	}
	yAxis = yAxis.Normalize()
	xAxis := yAxis.Cross(zAxis)

	// Camera axes become the columns of the camera-to-world rotation.
	return Mat3{
		{xAxis.X, yAxis.X, zAxis.X},
		{xAxis.Y, yAxis.Y, zAxis.Y},
		{xAxis.Z, yAxis.Z, zAxis.Z},
	}
}

// CameraToWorld returns the homogeneous 4x4 camera-to-world transform.
func (p Pose) CameraToWorld() Mat4 {
	return Mat4From34(ComposeMat34(p.Rotation, p.Position))
}

// Forward returns the unit view direction (camera -Z axis in world space).
func (p Pose) Forward() Vec3 {
	return Vec3{X: -p.Rotation[0][2], Y: -p.Rotation[1][2], Z: -p.Rotation[2][2]}
}

// Distance returns the Euclidean distance from the camera to a point.
func (p Pose) Distance(target Vec3) float64 {
	return target.Sub(p.Position).Length()
}

// cvFlip converts the -Z forward / Y up camera frame into the computer
// vision frame (x right, y down, z forward).
var cvFlip = Mat3{{1, 0, 0}, {0, -1, 0}, {0, 0, -1}}

// ExtrinsicsCV returns the world-to-camera [R|t] matrix in computer vision
// convention, the layout consumed by the dataset converters.
func (p Pose) ExtrinsicsCV() Mat34 {
	rw2c := p.Rotation.Transpose()
	t := rw2c.MulVec(p.Position).Scale(-1)

	r := cvFlip.Mul(rw2c)
	tcv := cvFlip.MulVec(t)
	return ComposeMat34(r, tcv)
}

// Inclination returns the polar angle of the camera position measured from
// the +Z pole.
func (p Pose) Inclination() float64 {
	r := p.Position.Length()
	if r == 0 {
		return 0
	}
	return math.Acos(p.Position.Z / r)
}

// Azimuth returns the angle of the camera position around the Z axis,
// wrapped into [0, 2*pi).
func (p Pose) Azimuth() float64 {
	a := math.Atan2(p.Position.Y, p.Position.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
