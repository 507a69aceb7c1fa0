// Package preview provides a tiny deterministic software engine: a unit
// sphere above a checkered ground plane, lit by a single directional light.
// It exists so the batch pipeline can run end to end (tests, examples,
// smoke runs) without a host renderer; real deployments supply their own
// engine.Engine.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/goliatone/go-rendergen/pkg/engine"
	"github.com/goliatone/go-rendergen/pkg/geom"
)

const (
	sphereRadius = 1.0
	groundZ      = -1.0
)

// Engine implements engine.Engine plus the auxiliary pass and scene bounds
// capabilities.
type Engine struct {
	width, height int
	modelLoaded   bool
	lightDir      geom.Vec3
	cameras       int
}

var (
	_ engine.Engine         = (*Engine)(nil)
	_ engine.PassRenderer   = (*Engine)(nil)
	_ engine.BoundsReporter = (*Engine)(nil)
)

// New creates a preview engine rendering at the given resolution.
func New(width, height int) *Engine {
	return &Engine{
		width:    width,
		height:   height,
		lightDir: geom.NewVec3(5, -5, 10).Normalize(),
	}
}

// ResetScene clears the model and lights.
func (e *Engine) ResetScene(ctx context.Context) error {
	e.modelLoaded = false
	e.lightDir = geom.NewVec3(5, -5, 10).Normalize()
	e.cameras = 0
	return ctx.Err()
}

// LoadModel accepts any non-empty path; the preview scene is procedural.
func (e *Engine) LoadModel(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("preview: model path is required")
	}
	e.modelLoaded = true
	return nil
}

// SetLights keeps the first light as the directional source.
func (e *Engine) SetLights(ctx context.Context, lights []engine.Light) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(lights) > 0 {
		e.lightDir = lights[0].Position.Normalize()
	}
	return nil
}

// CreateCamera returns a handle snapshotting pose and lens.
func (e *Engine) CreateCamera(ctx context.Context, pose geom.Pose, lens engine.LensParams) (engine.Camera, error) {
	if err := ctx.Err(); err != nil {
		return engine.Camera{}, err
	}
	e.cameras++
	return engine.Camera{
		ID:   fmt.Sprintf("cam-%03d", e.cameras-1),
		Pose: pose,
		Lens: lens,
	}, nil
}

// Resolution returns the configured output size.
func (e *Engine) Resolution() (int, int) {
	return e.width, e.height
}

// SceneBounds reports the sphere's bounding box once a model is loaded.
func (e *Engine) SceneBounds() (engine.Bounds, bool) {
	if !e.modelLoaded {
		return engine.Bounds{}, false
	}
	return engine.Bounds{
		Min: geom.NewVec3(-sphereRadius, -sphereRadius, -sphereRadius),
		Max: geom.NewVec3(sphereRadius, sphereRadius, sphereRadius),
	}, true
}

// RenderToFile renders the RGB view.
func (e *Engine) RenderToFile(ctx context.Context, cam engine.Camera, path string, settings engine.ImageSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.modelLoaded {
		return errors.New("preview: no model loaded")
	}

	img := image.NewNRGBA(image.Rect(0, 0, e.width, e.height))
	e.forEachPixel(cam, func(x, y int, hit hitInfo) {
		img.SetNRGBA(x, y, hit.shade(e.lightDir))
	})
	return writePNG(path, img)
}

// RenderPass renders one auxiliary pass for the same view.
func (e *Engine) RenderPass(ctx context.Context, cam engine.Camera, kind engine.PassKind, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.modelLoaded {
		return errors.New("preview: no model loaded")
	}

	switch kind {
	case engine.PassDepth:
		img := image.NewGray16(image.Rect(0, 0, e.width, e.height))
		far := cam.Pose.Position.Length() + sphereRadius*2
		e.forEachPixel(cam, func(x, y int, hit hitInfo) {
			if hit.object == objectNone {
				return
			}
			v := 1 - math.Min(hit.dist/far, 1)
			img.SetGray16(x, y, color.Gray16{Y: uint16(v * math.MaxUint16)})
		})
		return writePNG(path, img)
	case engine.PassNormal:
		img := image.NewNRGBA(image.Rect(0, 0, e.width, e.height))
		e.forEachPixel(cam, func(x, y int, hit hitInfo) {
			if hit.object == objectNone {
				return
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((hit.normal.X*0.5 + 0.5) * 255),
				G: uint8((hit.normal.Y*0.5 + 0.5) * 255),
				B: uint8((hit.normal.Z*0.5 + 0.5) * 255),
				A: 255,
			})
		})
		return writePNG(path, img)
	case engine.PassMask:
		img := image.NewGray(image.Rect(0, 0, e.width, e.height))
		e.forEachPixel(cam, func(x, y int, hit hitInfo) {
			if hit.object == objectModel {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		})
		return writePNG(path, img)
	case engine.PassMasked:
		img := image.NewNRGBA(image.Rect(0, 0, e.width, e.height))
		e.forEachPixel(cam, func(x, y int, hit hitInfo) {
			if hit.object != objectModel {
				return
			}
			c := hit.shade(e.lightDir)
			c.A = 255
			img.SetNRGBA(x, y, c)
		})
		return writePNG(path, img)
	default:
		return fmt.Errorf("preview: unsupported pass %q", kind)
	}
}

type object int

const (
	objectNone object = iota
	objectModel
	objectGround
)

type hitInfo struct {
	object object
	dist   float64
	point  geom.Vec3
	normal geom.Vec3
}

func (h hitInfo) shade(lightDir geom.Vec3) color.NRGBA {
	switch h.object {
	case objectModel:
		lambert := math.Max(h.normal.Dot(lightDir), 0)
		v := 0.15 + 0.85*lambert
		return color.NRGBA{R: uint8(230 * v), G: uint8(120 * v), B: uint8(60 * v), A: 255}
	case objectGround:
		check := int(math.Floor(h.point.X)+math.Floor(h.point.Y)) & 1
		lambert := math.Max(lightDir.Z, 0)
		v := 0.2 + 0.8*lambert
		if check == 0 {
			return color.NRGBA{R: uint8(235 * v), G: uint8(235 * v), B: uint8(235 * v), A: 255}
		}
		return color.NRGBA{R: uint8(40 * v), G: uint8(40 * v), B: uint8(40 * v), A: 255}
	default:
		return color.NRGBA{R: 18, G: 22, B: 30, A: 255}
	}
}

// forEachPixel traces the primary ray of every pixel and hands the nearest
// hit to fn. Rays are built from the pinhole intrinsics of the camera.
func (e *Engine) forEachPixel(cam engine.Camera, fn func(x, y int, hit hitInfo)) {
	k := cam.Lens.Intrinsics(e.width, e.height)
	fx, fy := k[0][0], k[1][1]
	cx, cy := k[0][2], k[1][2]

	r := cam.Pose.Rotation
	right := geom.NewVec3(r[0][0], r[1][0], r[2][0])
	up := geom.NewVec3(r[0][1], r[1][1], r[2][1])
	forward := cam.Pose.Forward()

	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			// Pixel y grows downward while the camera Y axis points up.
			u := (float64(x) + 0.5 - cx) / fx
			v := -(float64(y) + 0.5 - cy) / fy
			dir := right.Scale(u).Add(up.Scale(v)).Add(forward).Normalize()
			fn(x, y, trace(cam.Pose.Position, dir))
		}
	}
}

func trace(origin, dir geom.Vec3) hitInfo {
	best := hitInfo{object: objectNone, dist: math.Inf(1)}

	// Unit sphere at the scene origin.
	oc := origin
	b := oc.Dot(dir)
	c := oc.Dot(oc) - sphereRadius*sphereRadius
	if disc := b*b - c; disc > 0 {
		t := -b - math.Sqrt(disc)
		if t > 1e-6 && t < best.dist {
			point := origin.Add(dir.Scale(t))
			best = hitInfo{object: objectModel, dist: t, point: point, normal: point.Normalize()}
		}
	}

	// Ground plane.
	if dir.Z < -1e-9 {
		t := (groundZ - origin.Z) / dir.Z
		if t > 1e-6 && t < best.dist {
			point := origin.Add(dir.Scale(t))
			best = hitInfo{object: objectGround, dist: t, point: point, normal: geom.NewVec3(0, 0, 1)}
		}
	}
	return best
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return f.Close()
}
