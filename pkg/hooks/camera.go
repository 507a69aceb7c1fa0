package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-rendergen/pkg/geom"
)

// IntrinsicsFileName is the batch-scope 3x3 calibration matrix file.
const IntrinsicsFileName = "camera_intrinsics.txt"

// CameraIntrinsics writes the 3x3 pinhole calibration matrix once per
// batch, when the first camera is created. Intrinsics are identical for
// every view: zero skew, no distortion, square pixels.
type CameraIntrinsics struct {
	written bool
}

// NewCameraIntrinsics constructs the hook; it takes no settings.
func NewCameraIntrinsics(map[string]any) (Hook, error) {
	return &CameraIntrinsics{}, nil
}

// Name implements Hook.
func (*CameraIntrinsics) Name() string { return "camera_intrinsics" }

// OnCameraCreated writes the matrix on the first call only.
func (h *CameraIntrinsics) OnCameraCreated(_ context.Context, hctx *Context) error {
	if h.written {
		return nil
	}
	w, ht := hctx.Engine.Resolution()
	k := hctx.Camera.Lens.Intrinsics(w, ht)

	path := filepath.Join(hctx.OutputDir, IntrinsicsFileName)
	if err := writeMatrixFile(path, rows3(k)); err != nil {
		return err
	}
	hctx.AddArtifact(path)
	h.written = true
	return nil
}

// CameraExtrinsics writes the 3x4 world-to-camera [R|t] matrix of every
// view in computer vision convention.
type CameraExtrinsics struct{}

// NewCameraExtrinsics constructs the hook; it takes no settings.
func NewCameraExtrinsics(map[string]any) (Hook, error) {
	return &CameraExtrinsics{}, nil
}

// Name implements Hook.
func (*CameraExtrinsics) Name() string { return "camera_extrinsics" }

// OnCameraCreated writes {index:03d}_camera_extrinsics.txt.
func (h *CameraExtrinsics) OnCameraCreated(_ context.Context, hctx *Context) error {
	ext := hctx.Camera.Pose.ExtrinsicsCV()
	path := filepath.Join(hctx.OutputDir, fmt.Sprintf("%03d_%s.txt", hctx.View, h.Name()))
	if err := writeMatrixFile(path, rows34(ext)); err != nil {
		return err
	}
	hctx.AddArtifact(path)
	return nil
}

// CameraProjection writes the 3x4 projection matrix K[R|t] of every view.
type CameraProjection struct{}

// NewCameraProjection constructs the hook; it takes no settings.
func NewCameraProjection(map[string]any) (Hook, error) {
	return &CameraProjection{}, nil
}

// Name implements Hook.
func (*CameraProjection) Name() string { return "camera_projection_matrix" }

// OnCameraCreated writes {index:03d}_camera_projection_matrix.txt.
func (h *CameraProjection) OnCameraCreated(_ context.Context, hctx *Context) error {
	w, ht := hctx.Engine.Resolution()
	k := hctx.Camera.Lens.Intrinsics(w, ht)
	proj := hctx.Camera.Pose.ExtrinsicsCV().MulMat3(k)

	path := filepath.Join(hctx.OutputDir, fmt.Sprintf("%03d_%s.txt", hctx.View, h.Name()))
	if err := writeMatrixFile(path, rows34(proj)); err != nil {
		return err
	}
	hctx.AddArtifact(path)
	return nil
}

func rows3(m geom.Mat3) [][]float64 {
	return [][]float64{m[0][:], m[1][:], m[2][:]}
}

func rows34(m geom.Mat34) [][]float64 {
	return [][]float64{m[0][:], m[1][:], m[2][:]}
}

// writeMatrixFile writes rows of float64 space-separated with ten decimal
// places, one row per line.
func writeMatrixFile(path string, rows [][]float64) error {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, v := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.10f", v)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("hooks: write %s: %w", path, err)
	}
	return nil
}
