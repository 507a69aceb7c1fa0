package config_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-rendergen/pkg/config"
	"github.com/goliatone/go-rendergen/pkg/sampler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
model_path: models/chair.glb
num_images: 12
sampling:
  policy: uniform
  radius: 10
  inclination_start: "pi/6"
  inclination_stop: "3*math.pi/6"
  inclination_step: "pi/6"
hooks:
  enabled: [camera_intrinsics, mask]
  settings:
    mask:
      exclude_pattern: "Ground.*"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ModelPath != "models/chair.glb" || cfg.NumImages != 12 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Defaults survive where the file is silent.
	if cfg.Render.Width != 800 || cfg.Render.FocalLengthMM != 35 {
		t.Fatalf("defaults lost: %+v", cfg.Render)
	}

	spec := cfg.Sampling.Spec()
	if spec.Policy != sampler.PolicyUniform {
		t.Fatalf("policy: %v", spec.Policy)
	}
	if math.Abs(spec.InclinationStart-math.Pi/6) > 1e-12 ||
		math.Abs(spec.InclinationStop-math.Pi/2) > 1e-12 ||
		math.Abs(spec.InclinationStep-math.Pi/6) > 1e-12 {
		t.Fatalf("angle expressions not evaluated: %+v", spec)
	}

	want := map[string]any{"exclude_pattern": "Ground.*"}
	if diff := cmp.Diff(want, cfg.Hooks.SettingsFor("mask")); diff != "" {
		t.Fatalf("hook settings mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Hooks.SettingsFor("camera_intrinsics"); len(got) != 0 {
		t.Fatalf("expected empty settings, got %v", got)
	}
}

func TestValidateRejectsConflicts(t *testing.T) {
	cfg := config.Default()
	cfg.Hooks.Enabled = []string{"mask", "depth", "mask"}
	if err := cfg.Validate(); !errors.Is(err, config.ErrConflict) {
		t.Fatalf("duplicate hook: expected ErrConflict, got %v", err)
	}

	cfg = config.Default()
	cfg.Hooks.Settings = map[string]map[string]any{"mask": {}}
	if err := cfg.Validate(); !errors.Is(err, config.ErrConflict) {
		t.Fatalf("orphan settings: expected ErrConflict, got %v", err)
	}

	cfg = config.Default()
	cfg.Sampling.RadiusMin = 5
	cfg.Sampling.RadiusMax = 2
	if err := cfg.Validate(); !errors.Is(err, sampler.ErrInvalidSpec) {
		t.Fatalf("inverted radius: expected ErrInvalidSpec, got %v", err)
	}
}

func TestEvalAngle(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"pi", math.Pi},
		{"pi/2", math.Pi / 2},
		{"3*math.pi/6", math.Pi / 2},
		{"2 * pi", 2 * math.Pi},
		{"-pi/4", -math.Pi / 4},
		{"0.75", 0.75},
	}
	for _, tc := range cases {
		got, err := config.EvalAngle(tc.expr)
		if err != nil {
			t.Fatalf("%q: %v", tc.expr, err)
		}
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("%q: got %v want %v", tc.expr, got, tc.want)
		}
	}

	for _, expr := range []string{"", "pi/", "*2", "pi/0", "tau"} {
		if _, err := config.EvalAngle(expr); err == nil {
			t.Fatalf("%q: expected error", expr)
		}
	}
}
