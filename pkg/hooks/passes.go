package hooks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goliatone/go-rendergen/pkg/engine"
)

// PassHook renders one auxiliary engine pass per view: depth, normal,
// object-index mask or masked RGBA. The output name follows the per-view
// artifact contract, {index:03d}_<name>_000.png.
type PassHook struct {
	name string
	kind engine.PassKind
}

// Name implements Hook.
func (h *PassHook) Name() string { return h.name }

// OnViewRendered asks the engine for the pass after the main render landed
// on disk, so the pass observes the exact same camera.
func (h *PassHook) OnViewRendered(ctx context.Context, hctx *Context) error {
	renderer, ok := hctx.Engine.(engine.PassRenderer)
	if !ok {
		return fmt.Errorf("engine does not support auxiliary passes")
	}

	path := filepath.Join(hctx.OutputDir, fmt.Sprintf("%03d_%s_000.png", hctx.View, h.name))
	if err := renderer.RenderPass(ctx, hctx.Camera, h.kind, path); err != nil {
		return fmt.Errorf("render %s pass: %w", h.kind, err)
	}
	hctx.AddArtifact(path)
	return nil
}

func passFactory(name string, kind engine.PassKind) Factory {
	return func(map[string]any) (Hook, error) {
		return &PassHook{name: name, kind: kind}, nil
	}
}

// DefaultFactories maps every built-in hook identifier to its constructor.
// The orchestrator resolves the configured enabled-list against this static
// registry; no dynamic loading is involved.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		"camera_intrinsics":        NewCameraIntrinsics,
		"camera_extrinsics":        NewCameraExtrinsics,
		"camera_projection_matrix": NewCameraProjection,
		"bounding_box":             NewBoundingBox,
		"normalization_matrix":     NewNormalizationMatrix,
		"depth":                    passFactory("depth", engine.PassDepth),
		"normal":                   passFactory("normal", engine.PassNormal),
		"mask":                     passFactory("mask", engine.PassMask),
		"masked":                   passFactory("masked", engine.PassMasked),
	}
}
