package hooks

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Event names a lifecycle notification.
type Event string

const (
	EventSceneCreated   Event = "scene_created"
	EventCameraCreated  Event = "camera_created"
	EventViewRendered   Event = "view_rendered"
	EventBatchCompleted Event = "batch_completed"
)

// Failure records one hook callback that returned an error or panicked.
// Failures never abort the batch; the orchestrator surfaces them all at
// batch end.
type Failure struct {
	Hook  string
	Event Event
	View  int
	Err   error
}

// Dispatcher fans lifecycle notifications out to every registered hook, in
// registration order, synchronously on the calling goroutine.
type Dispatcher struct {
	registry *Registry
	log      *zap.Logger
	failures []Failure
}

// NewDispatcher wraps a registry. A nil logger falls back to a no-op one.
func NewDispatcher(registry *Registry, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{registry: registry, log: log}
}

// SceneCreated notifies every SceneObserver.
func (d *Dispatcher) SceneCreated(ctx context.Context, hctx *Context) {
	d.dispatch(EventSceneCreated, hctx, func(h Hook) (bool, error) {
		obs, ok := h.(SceneObserver)
		if !ok {
			return false, nil
		}
		return true, obs.OnSceneCreated(ctx, hctx)
	})
}

// CameraCreated notifies every CameraObserver.
func (d *Dispatcher) CameraCreated(ctx context.Context, hctx *Context) {
	d.dispatch(EventCameraCreated, hctx, func(h Hook) (bool, error) {
		obs, ok := h.(CameraObserver)
		if !ok {
			return false, nil
		}
		return true, obs.OnCameraCreated(ctx, hctx)
	})
}

// ViewRendered notifies every ViewObserver.
func (d *Dispatcher) ViewRendered(ctx context.Context, hctx *Context) {
	d.dispatch(EventViewRendered, hctx, func(h Hook) (bool, error) {
		obs, ok := h.(ViewObserver)
		if !ok {
			return false, nil
		}
		return true, obs.OnViewRendered(ctx, hctx)
	})
}

// BatchCompleted notifies every BatchObserver.
func (d *Dispatcher) BatchCompleted(ctx context.Context, hctx *Context) {
	d.dispatch(EventBatchCompleted, hctx, func(h Hook) (bool, error) {
		obs, ok := h.(BatchObserver)
		if !ok {
			return false, nil
		}
		return true, obs.OnBatchCompleted(ctx, hctx)
	})
}

// Failures returns every recorded callback failure in occurrence order.
func (d *Dispatcher) Failures() []Failure {
	return d.failures
}

func (d *Dispatcher) dispatch(event Event, hctx *Context, call func(Hook) (bool, error)) {
	for _, h := range d.registry.Hooks() {
		implemented, err := d.safeCall(h, call)
		if !implemented {
			continue
		}
		if err != nil {
			d.failures = append(d.failures, Failure{
				Hook:  h.Name(),
				Event: event,
				View:  hctx.View,
				Err:   err,
			})
			d.log.Warn("hook callback failed",
				zap.String("hook", h.Name()),
				zap.String("event", string(event)),
				zap.Int("view", hctx.View),
				zap.Error(err),
			)
		}
	}
}

// safeCall converts a panicking hook into a recorded failure so the
// remaining hooks and the batch keep running.
func (d *Dispatcher) safeCall(h Hook, call func(Hook) (bool, error)) (implemented bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			implemented = true
			err = fmt.Errorf("hooks: panic in %q: %v", h.Name(), r)
		}
	}()
	return call(h)
}
