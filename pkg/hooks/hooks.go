// Package hooks lets independent output-producing units observe the render
// lifecycle without the orchestrator knowing about them. A hook implements
// any subset of four optional callbacks; missing callbacks are no-ops. The
// dispatcher invokes hooks synchronously in registration order and isolates
// their failures so one broken hook never aborts a batch.
package hooks

import (
	"context"

	"github.com/goliatone/go-rendergen/pkg/engine"
)

// Hook is the minimal contract: a stable identifier used for registration,
// artifact naming and failure attribution.
type Hook interface {
	Name() string
}

// SceneObserver runs after the scene has been built and the model loaded.
type SceneObserver interface {
	Hook
	OnSceneCreated(ctx context.Context, hctx *Context) error
}

// CameraObserver runs after the camera for a view has been created, before
// the render.
type CameraObserver interface {
	Hook
	OnCameraCreated(ctx context.Context, hctx *Context) error
}

// ViewObserver runs after a view has been rendered to disk.
type ViewObserver interface {
	Hook
	OnViewRendered(ctx context.Context, hctx *Context) error
}

// BatchObserver runs once after the last view.
type BatchObserver interface {
	Hook
	OnBatchCompleted(ctx context.Context, hctx *Context) error
}

// Context is the bag handed to each lifecycle call. The dispatcher owns its
// construction and lifetime; hooks must not retain it past the call that
// supplied it.
type Context struct {
	// Engine is the live engine owning the scene.
	Engine engine.Engine
	// Camera is the handle of the current view; zero outside the per-view
	// callbacks.
	Camera engine.Camera
	// View is the zero-based view index, -1 for batch-scope callbacks.
	View int
	// OutputDir is the batch output directory.
	OutputDir string
	// RenderPath is the main render file of the current view; set from the
	// view-rendered callback on.
	RenderPath string

	artifacts []string
}

// AddArtifact records a file the hook produced for the current view so the
// orchestrator can attach it to the view record.
func (c *Context) AddArtifact(path string) {
	c.artifacts = append(c.artifacts, path)
}

// Artifacts returns the files recorded so far.
func (c *Context) Artifacts() []string {
	return c.artifacts
}

// Factory constructs a hook from its named sub-configuration. The mapping
// is opaque: a hook sees only its own settings, never the whole document.
type Factory func(settings map[string]any) (Hook, error)
