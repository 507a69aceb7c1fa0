// Package config holds the validated, fully-defaulted batch configuration.
// Values arrive from YAML; every angle field is evaluated to radians during
// decoding, so downstream packages never see raw configuration text.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-rendergen/pkg/engine"
	"github.com/goliatone/go-rendergen/pkg/geom"
	"github.com/goliatone/go-rendergen/pkg/sampler"
)

// ErrConflict marks duplicate or contradictory configuration. It is fatal
// at construction; a batch never starts with a conflicting config.
var ErrConflict = errors.New("config: conflicting configuration")

// Config is the complete batch configuration.
type Config struct {
	// ModelPath locates the model file loaded into the scene.
	ModelPath string `yaml:"model_path"`
	// OutputDir receives all per-view artifacts and batch-level files.
	OutputDir string `yaml:"output_dir"`
	// NumImages is the number of views to render.
	NumImages int `yaml:"num_images"`
	// Seed feeds the sampling random stream; zero lets the caller pick.
	Seed int64 `yaml:"seed"`

	Render   RenderConfig   `yaml:"render"`
	Sampling SamplingConfig `yaml:"sampling"`
	Lights   []LightConfig  `yaml:"lights"`
	Hooks    HooksConfig    `yaml:"hooks"`
}

// RenderConfig carries the engine-facing render settings.
type RenderConfig struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	FocalLengthMM  float64 `yaml:"focal_mm"`
	SensorWidthMM  float64 `yaml:"sensor_width_mm"`
	SensorHeightMM float64 `yaml:"sensor_height_mm"`
	FStop          float64 `yaml:"fstop"`
	Format         string  `yaml:"format"`
}

// Lens maps the render settings onto engine lens parameters.
func (r RenderConfig) Lens() engine.LensParams {
	return engine.LensParams{
		FocalLengthMM:  r.FocalLengthMM,
		SensorWidthMM:  r.SensorWidthMM,
		SensorHeightMM: r.SensorHeightMM,
		FStop:          r.FStop,
	}
}

// SamplingConfig mirrors sampler.SamplingSpec with YAML-friendly fields.
// Angle values accept plain radians or expressions such as "pi/6".
type SamplingConfig struct {
	Policy string `yaml:"policy"`

	RadiusMin      float64 `yaml:"radius_min"`
	RadiusMax      float64 `yaml:"radius_max"`
	InclinationMin Angle   `yaml:"inclination_min"`
	InclinationMax Angle   `yaml:"inclination_max"`
	AzimuthMin     Angle   `yaml:"azimuth_min"`
	AzimuthMax     Angle   `yaml:"azimuth_max"`

	Radius           float64 `yaml:"radius"`
	InclinationStart Angle   `yaml:"inclination_start"`
	InclinationStop  Angle   `yaml:"inclination_stop"`
	InclinationStep  Angle   `yaml:"inclination_step"`
}

// Spec converts the block into a sampler spec.
func (s SamplingConfig) Spec() sampler.SamplingSpec {
	return sampler.SamplingSpec{
		Policy:           sampler.Policy(s.Policy),
		RadiusMin:        s.RadiusMin,
		RadiusMax:        s.RadiusMax,
		InclinationMin:   float64(s.InclinationMin),
		InclinationMax:   float64(s.InclinationMax),
		AzimuthMin:       float64(s.AzimuthMin),
		AzimuthMax:       float64(s.AzimuthMax),
		Radius:           s.Radius,
		InclinationStart: float64(s.InclinationStart),
		InclinationStop:  float64(s.InclinationStop),
		InclinationStep:  float64(s.InclinationStep),
	}
}

// LightConfig places one light.
type LightConfig struct {
	Position [3]float64 `yaml:"position"`
	Energy   float64    `yaml:"energy"`
}

// Light converts the block into an engine light.
func (l LightConfig) Light() engine.Light {
	return engine.Light{
		Position: geom.NewVec3(l.Position[0], l.Position[1], l.Position[2]),
		Energy:   l.Energy,
	}
}

// HooksConfig selects and configures the lifecycle hooks. Hooks are
// constructed in the exact order their identifiers appear in Enabled, each
// receiving only its own named sub-configuration.
type HooksConfig struct {
	Enabled  []string                  `yaml:"enabled"`
	Settings map[string]map[string]any `yaml:"settings"`
}

// SettingsFor returns the opaque sub-configuration of one hook, never nil.
func (h HooksConfig) SettingsFor(name string) map[string]any {
	if s, ok := h.Settings[name]; ok {
		return s
	}
	return map[string]any{}
}

// Default returns the fully-defaulted configuration: a single view rendered
// from a random position on a radius-10 upper hemisphere, one fixed sun
// light, depth of field enabled.
func Default() Config {
	return Config{
		OutputDir: "batch",
		NumImages: 1,
		Render: RenderConfig{
			Width:          800,
			Height:         800,
			FocalLengthMM:  35,
			SensorWidthMM:  36,
			SensorHeightMM: 24,
			FStop:          2.8,
			Format:         "png",
		},
		Sampling: SamplingConfig{
			Policy:         string(sampler.PolicyRandom),
			RadiusMin:      10,
			RadiusMax:      10,
			InclinationMin: 0,
			InclinationMax: Angle(math.Pi / 2),
			AzimuthMin:     0,
			AzimuthMax:     Angle(2 * math.Pi),
			Radius:         10,
		},
		Lights: []LightConfig{
			{Position: [3]float64{5, -5, 10}, Energy: 5},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the construction-time invariants. Sampling failures wrap
// sampler.ErrInvalidSpec, hook conflicts wrap ErrConflict; both prevent the
// batch from starting.
func (c Config) Validate() error {
	if c.NumImages < 0 {
		return fmt.Errorf("%w: num_images must be non-negative", ErrConflict)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("%w: render resolution must be positive", ErrConflict)
	}
	if err := c.Sampling.Spec().Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Hooks.Enabled))
	for _, name := range c.Hooks.Enabled {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: hook %q enabled twice", ErrConflict, name)
		}
		seen[name] = struct{}{}
	}
	for name := range c.Hooks.Settings {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("%w: settings for hook %q which is not enabled", ErrConflict, name)
		}
	}
	return nil
}
