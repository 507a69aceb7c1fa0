package geom_test

import (
	"math"
	"testing"

	"github.com/goliatone/go-rendergen/pkg/geom"
)

func TestLookAtRotationIsOrthonormal(t *testing.T) {
	positions := []geom.Vec3{
		geom.NewVec3(10, 0, 0),
		geom.NewVec3(0, -7, 3),
		geom.NewVec3(4, 4, 4),
		geom.NewVec3(0, 0, 10), // straight down: up hint degenerates
		geom.NewVec3(0, 0, -2), // straight up
	}
	origin := geom.Vec3{}

	for _, pos := range positions {
		pose := geom.LookAt(pos, origin)
		if !pose.Rotation.IsOrthonormal(1e-9) {
			t.Fatalf("rotation for %v is not orthonormal: %v", pos, pose.Rotation)
		}
		// The camera forward axis must point at the target.
		want := origin.Sub(pos).Normalize()
		vecClose(t, want, pose.Forward(), 1e-12)
	}
}

func TestLookAtFromAboveIsIdentity(t *testing.T) {
	pose := geom.LookAt(geom.NewVec3(0, 0, 5), geom.Vec3{})
	mat3Close(t, geom.IdentityMat3(), pose.Rotation, 1e-12)
}

func TestExtrinsicsCVRoundTrip(t *testing.T) {
	pose := geom.LookAt(geom.NewVec3(3, -4, 6), geom.Vec3{})
	ext := pose.ExtrinsicsCV()

	q, center, err := geom.DecomposeCameraToWorld(ext)
	if err != nil {
		t.Fatalf("decompose extrinsics: %v", err)
	}
	vecClose(t, pose.Position, center, 1e-9)
	if !q.RotationMatrix().IsOrthonormal(1e-9) {
		t.Fatalf("decomposed rotation not orthonormal")
	}

	// In CV convention the scene origin projects onto the optical axis at
	// positive depth.
	origin := ext.Rotation().MulVec(geom.Vec3{}).Add(ext.Translation())
	if origin.Z <= 0 {
		t.Fatalf("expected positive depth for target, got %v", origin.Z)
	}
	if dist := pose.Distance(geom.Vec3{}); math.Abs(origin.Z-dist) > 1e-9 {
		t.Fatalf("depth %v does not match camera distance %v", origin.Z, dist)
	}
}

func TestSphericalToCartesian(t *testing.T) {
	v := geom.SphericalToCartesian(2, math.Pi/2, 0)
	vecClose(t, geom.NewVec3(2, 0, 0), v, 1e-12)

	v = geom.SphericalToCartesian(3, 0, 1.23)
	vecClose(t, geom.NewVec3(0, 0, 3), v, 1e-12)
}
