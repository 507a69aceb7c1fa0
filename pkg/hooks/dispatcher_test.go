package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-rendergen/pkg/hooks"
)

// recordingHook implements every callback and appends its name to a shared
// trace.
type recordingHook struct {
	name  string
	trace *[]string
	fail  error
	panic bool
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) observe(event string) error {
	*h.trace = append(*h.trace, h.name+":"+event)
	if h.panic {
		panic("boom")
	}
	return h.fail
}

func (h *recordingHook) OnSceneCreated(context.Context, *hooks.Context) error {
	return h.observe("scene")
}

func (h *recordingHook) OnCameraCreated(context.Context, *hooks.Context) error {
	return h.observe("camera")
}

func (h *recordingHook) OnViewRendered(context.Context, *hooks.Context) error {
	return h.observe("view")
}

func (h *recordingHook) OnBatchCompleted(context.Context, *hooks.Context) error {
	return h.observe("batch")
}

// sceneOnlyHook implements a single capability.
type sceneOnlyHook struct {
	trace *[]string
}

func (h *sceneOnlyHook) Name() string { return "scene_only" }

func (h *sceneOnlyHook) OnSceneCreated(context.Context, *hooks.Context) error {
	*h.trace = append(*h.trace, "scene_only:scene")
	return nil
}

func TestDispatchFollowsRegistrationOrder(t *testing.T) {
	var trace []string
	reg := hooks.NewRegistry()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := reg.Register(&recordingHook{name: name, trace: &trace}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	d := hooks.NewDispatcher(reg, nil)
	hctx := &hooks.Context{View: 0}
	d.SceneCreated(context.Background(), hctx)
	d.CameraCreated(context.Background(), hctx)

	want := []string{
		"alpha:scene", "beta:scene", "gamma:scene",
		"alpha:camera", "beta:camera", "gamma:camera",
	}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Fatalf("dispatch order mismatch (-want +got):\n%s", diff)
	}
	if len(d.Failures()) != 0 {
		t.Fatalf("unexpected failures: %v", d.Failures())
	}
}

func TestFailingHookDoesNotBlockOthers(t *testing.T) {
	var trace []string
	reg := hooks.NewRegistry()
	boom := errors.New("broken")
	reg.Register(&recordingHook{name: "first", trace: &trace})
	reg.Register(&recordingHook{name: "second", trace: &trace, fail: boom})
	reg.Register(&recordingHook{name: "third", trace: &trace})

	d := hooks.NewDispatcher(reg, nil)
	d.ViewRendered(context.Background(), &hooks.Context{View: 4})

	want := []string{"first:view", "second:view", "third:view"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}

	failures := d.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %v", failures)
	}
	f := failures[0]
	if f.Hook != "second" || f.Event != hooks.EventViewRendered || f.View != 4 || !errors.Is(f.Err, boom) {
		t.Fatalf("unexpected failure record: %+v", f)
	}
}

func TestPanickingHookIsIsolated(t *testing.T) {
	var trace []string
	reg := hooks.NewRegistry()
	reg.Register(&recordingHook{name: "panicky", trace: &trace, panic: true})
	reg.Register(&recordingHook{name: "steady", trace: &trace})

	d := hooks.NewDispatcher(reg, nil)
	d.BatchCompleted(context.Background(), &hooks.Context{View: -1})

	want := []string{"panicky:batch", "steady:batch"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if len(d.Failures()) != 1 || d.Failures()[0].Hook != "panicky" {
		t.Fatalf("expected one failure from panicky, got %v", d.Failures())
	}
}

func TestPartialCapabilityIsNoOp(t *testing.T) {
	var trace []string
	reg := hooks.NewRegistry()
	reg.Register(&sceneOnlyHook{trace: &trace})

	d := hooks.NewDispatcher(reg, nil)
	hctx := &hooks.Context{}
	d.SceneCreated(context.Background(), hctx)
	d.CameraCreated(context.Background(), hctx)
	d.ViewRendered(context.Background(), hctx)
	d.BatchCompleted(context.Background(), hctx)

	if diff := cmp.Diff([]string{"scene_only:scene"}, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if len(d.Failures()) != 0 {
		t.Fatalf("missing callbacks must not count as failures: %v", d.Failures())
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	var trace []string
	reg := hooks.NewRegistry()
	if err := reg.Register(&recordingHook{name: "dup", trace: &trace}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(&recordingHook{name: "dup", trace: &trace}); !errors.Is(err, hooks.ErrDuplicateHook) {
		t.Fatalf("expected ErrDuplicateHook, got %v", err)
	}
}

func TestBuildResolvesEnabledOrderAndSettings(t *testing.T) {
	var got []string
	factories := map[string]hooks.Factory{
		"one": namedFactory("one", &got),
		"two": namedFactory("two", &got),
	}

	reg, err := hooks.Build(
		[]string{"two", "one"},
		map[string]map[string]any{"one": {"tag": "x"}},
		factories,
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 hooks, got %d", reg.Len())
	}
	names := []string{reg.Hooks()[0].Name(), reg.Hooks()[1].Name()}
	if diff := cmp.Diff([]string{"two", "one"}, names); diff != "" {
		t.Fatalf("construction order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"two", "one", "one=x"}, got); diff != "" {
		t.Fatalf("factory calls mismatch (-want +got):\n%s", diff)
	}

	if _, err := hooks.Build([]string{"missing"}, nil, factories); !errors.Is(err, hooks.ErrUnknownHook) {
		t.Fatalf("expected ErrUnknownHook, got %v", err)
	}
}

type namedHook struct{ name string }

func (h *namedHook) Name() string { return h.name }

func namedFactory(name string, trace *[]string) hooks.Factory {
	return func(settings map[string]any) (hooks.Hook, error) {
		*trace = append(*trace, name)
		if v, ok := settings["tag"]; ok {
			*trace = append(*trace, name+"="+v.(string))
		}
		return &namedHook{name: name}, nil
	}
}
