package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/goliatone/go-rendergen/pkg/engine"
)

// Batch-scope file names consumed by the dataset converters.
const (
	BoundingBoxFileName   = "bounding_box.txt"
	NormalizationFileName = "normalization_matrix.json"
)

// BoundingBox writes bounding_box.txt once per batch: a single line with
// the world-space scene box followed by an initial voxel size, the format
// expected by sparse-voxel pipelines.
type BoundingBox struct {
	voxelSize float64
}

// NewBoundingBox reads the optional voxel_size setting; zero derives the
// size from the largest box extent divided by 128.
func NewBoundingBox(settings map[string]any) (Hook, error) {
	h := &BoundingBox{}
	if v, ok := settings["voxel_size"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("voxel_size: %w", err)
		}
		h.voxelSize = f
	}
	return h, nil
}

// Name implements Hook.
func (*BoundingBox) Name() string { return "bounding_box" }

// OnSceneCreated writes the box if the engine reports scene bounds.
func (h *BoundingBox) OnSceneCreated(_ context.Context, hctx *Context) error {
	bounds, ok := sceneBounds(hctx.Engine)
	if !ok {
		return fmt.Errorf("engine reports no scene bounds, %s not written", BoundingBoxFileName)
	}

	voxel := h.voxelSize
	if voxel == 0 {
		ext := bounds.Extent()
		voxel = math.Max(ext.X, math.Max(ext.Y, ext.Z)) / 128
	}

	line := fmt.Sprintf("%v %v %v %v %v %v %v\n",
		bounds.Min.X, bounds.Min.Y, bounds.Min.Z,
		bounds.Max.X, bounds.Max.Y, bounds.Max.Z,
		voxel,
	)
	path := filepath.Join(hctx.OutputDir, BoundingBoxFileName)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	hctx.AddArtifact(path)
	return nil
}

// NormalizationMatrix writes the 4x4 uniform scale matrix that brings the
// scene hull into the unit sphere, as a JSON row-major array.
type NormalizationMatrix struct{}

// NewNormalizationMatrix constructs the hook; it takes no settings.
func NewNormalizationMatrix(map[string]any) (Hook, error) {
	return &NormalizationMatrix{}, nil
}

// Name implements Hook.
func (*NormalizationMatrix) Name() string { return "normalization_matrix" }

// OnSceneCreated computes 1/R with R the half diagonal of the scene box.
func (h *NormalizationMatrix) OnSceneCreated(_ context.Context, hctx *Context) error {
	bounds, ok := sceneBounds(hctx.Engine)
	if !ok {
		return fmt.Errorf("engine reports no scene bounds, %s not written", NormalizationFileName)
	}

	r := bounds.HalfDiagonal()
	if r == 0 {
		r = 1
	}
	s := 1 / r

	mat := [4][4]float64{
		{s, 0, 0, 0},
		{0, s, 0, 0},
		{0, 0, s, 0},
		{0, 0, 0, 1},
	}
	data, err := json.Marshal(mat)
	if err != nil {
		return fmt.Errorf("marshal normalization matrix: %w", err)
	}

	path := filepath.Join(hctx.OutputDir, NormalizationFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	hctx.AddArtifact(path)
	return nil
}

func sceneBounds(e engine.Engine) (engine.Bounds, bool) {
	reporter, ok := e.(engine.BoundsReporter)
	if !ok {
		return engine.Bounds{}, false
	}
	return reporter.SceneBounds()
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("hooks: expected number, got %T", v)
	}
}
