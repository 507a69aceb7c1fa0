// Package engine declares the interface the batch orchestrator consumes
// from a host rendering engine. The engine is an external collaborator:
// scene graph, shading and pixel I/O live behind this boundary, and every
// call is synchronous and blocking. Engines are not assumed safe for
// concurrent scene mutation, so at most one render is in flight per
// process.
package engine

import (
	"context"

	"github.com/goliatone/go-rendergen/pkg/geom"
)

// Engine is the capability set every backend must provide.
type Engine interface {
	// ResetScene builds or clears the scene so a batch starts from a known
	// state.
	ResetScene(ctx context.Context) error
	// LoadModel imports the target model into the scene.
	LoadModel(ctx context.Context, path string) error
	// SetLights replaces the scene lights.
	SetLights(ctx context.Context, lights []Light) error
	// CreateCamera instantiates a camera at the given pose.
	CreateCamera(ctx context.Context, pose geom.Pose, lens LensParams) (Camera, error)
	// RenderToFile renders the view of cam synchronously into path.
	RenderToFile(ctx context.Context, cam Camera, path string, settings ImageSettings) error
	// Resolution returns the output size in pixels.
	Resolution() (width, height int)
}

// PassKind names an auxiliary render pass.
type PassKind string

const (
	PassDepth  PassKind = "depth"
	PassNormal PassKind = "normal"
	PassMask   PassKind = "mask"
	PassMasked PassKind = "masked"
)

// PassRenderer is implemented by engines that can emit auxiliary passes
// (depth, normal, object-index mask, masked RGBA) for the current view.
type PassRenderer interface {
	RenderPass(ctx context.Context, cam Camera, kind PassKind, path string) error
}

// BoundsReporter is implemented by engines that expose the world-space
// bounding box of the loaded scene.
type BoundsReporter interface {
	SceneBounds() (Bounds, bool)
}

// Camera is the handle returned by CreateCamera. The pose and lens are
// snapshots; the orchestrator owns the handle for the duration of one view.
type Camera struct {
	ID   string
	Pose geom.Pose
	Lens LensParams
}

// Light describes one light source.
type Light struct {
	Position geom.Vec3
	Energy   float64
}

// ImageSettings carries per-render output options.
type ImageSettings struct {
	// Format is the image container, e.g. "png".
	Format string
}

// LensParams describes a perspective camera lens.
type LensParams struct {
	FocalLengthMM  float64
	SensorWidthMM  float64
	SensorHeightMM float64
	// FStop enables depth of field when positive.
	FStop float64
	// FocusDistance is the focus plane distance; zero focuses on the
	// scene origin.
	FocusDistance float64
}

// Intrinsics derives the 3x3 pinhole calibration matrix for the given
// output resolution, assuming zero skew, zero shift and square pixels. The
// sensor fit follows the larger image dimension.
func (l LensParams) Intrinsics(width, height int) geom.Mat3 {
	sensor := l.SensorWidthMM
	viewFac := float64(width)
	if height > width {
		sensor = l.SensorHeightMM
		viewFac = float64(height)
	}
	if sensor == 0 {
		sensor = 36
	}
	f := l.FocalLengthMM * viewFac / sensor
	return geom.Mat3{
		{f, 0, float64(width) / 2},
		{0, f, float64(height) / 2},
		{0, 0, 1},
	}
}

// Bounds is an axis-aligned world-space box.
type Bounds struct {
	Min, Max geom.Vec3
}

// Extent returns the box size along each axis.
func (b Bounds) Extent() geom.Vec3 {
	return b.Max.Sub(b.Min)
}

// HalfDiagonal returns the radius of the sphere circumscribing the box
// around its center.
func (b Bounds) HalfDiagonal() float64 {
	return b.Extent().Scale(0.5).Length()
}
