// Package orchestrator drives one render batch end to end: sampling the
// camera positions, preparing the scene, rendering every view through the
// configured engine and fanning lifecycle events out to the hooks. The
// orchestrator owns the batch sequencing; all output-producing side work
// lives in hooks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-rendergen/pkg/config"
	"github.com/goliatone/go-rendergen/pkg/engine"
	"github.com/goliatone/go-rendergen/pkg/engine/preview"
	"github.com/goliatone/go-rendergen/pkg/geom"
	"github.com/goliatone/go-rendergen/pkg/hooks"
	"github.com/goliatone/go-rendergen/pkg/sampler"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithEngine injects the rendering backend. Without it the orchestrator
// falls back to the built-in preview engine at the configured resolution.
func WithEngine(e engine.Engine) Option {
	return func(o *Orchestrator) {
		o.engine = e
	}
}

// WithLogger injects a structured logger. A nil logger stays a no-op.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithHookFactories merges extra hook constructors over the built-in set,
// letting callers register custom hooks under new identifiers or shadow the
// built-in ones.
func WithHookFactories(factories map[string]hooks.Factory) Option {
	return func(o *Orchestrator) {
		if o.factories == nil {
			o.factories = map[string]hooks.Factory{}
		}
		for name, factory := range factories {
			o.factories[name] = factory
		}
	}
}

// WithRegistry injects a pre-built hook registry, bypassing the enabled-list
// resolution entirely.
func WithRegistry(registry *hooks.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// Orchestrator coordinates the sample, prepare and render stages of a batch.
// The zero set of options yields a fully working instance backed by the
// preview engine and the built-in hooks.
type Orchestrator struct {
	engine    engine.Engine
	log       *zap.Logger
	factories map[string]hooks.Factory
	registry  *hooks.Registry

	defaultsApplied bool
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.defaultsApplied {
		return
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.factories == nil {
		o.factories = hooks.DefaultFactories()
	} else {
		merged := hooks.DefaultFactories()
		for name, factory := range o.factories {
			merged[name] = factory
		}
		o.factories = merged
	}
	o.defaultsApplied = true
}

// Run executes one batch described by cfg and returns the batch report. The
// report is also persisted as summary.json in the output directory, next to
// metadata.csv with one row per successfully rendered view.
//
// Per-view failures skip the view and the batch continues; the view is
// absent from metadata.csv and marked in the report. A failure wrapped in
// engine.FatalError stops rendering at that view; the partial metadata and
// summary are still written before the error is returned.
func (o *Orchestrator) Run(ctx context.Context, cfg config.Config) (Report, error) {
	if ctx == nil {
		return Report{}, errors.New("orchestrator: context is required")
	}
	if !o.defaultsApplied {
		o.applyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	eng := o.engine
	if eng == nil {
		eng = preview.New(cfg.Render.Width, cfg.Render.Height)
	}

	registry := o.registry
	if registry == nil {
		var err error
		registry, err = hooks.Build(cfg.Hooks.Enabled, cfg.Hooks.Settings, o.factories)
		if err != nil {
			return Report{}, fmt.Errorf("orchestrator: build hooks: %w", err)
		}
	}
	dispatcher := hooks.NewDispatcher(registry, o.log)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// The whole pose batch is drawn before any engine work so render
	// failures never perturb the random stream of later views.
	poses, err := sampler.Sample(cfg.Sampling.Spec(), cfg.NumImages, rng)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: sample poses: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("orchestrator: create output dir: %w", err)
	}

	report := Report{
		RunID:     uuid.NewString(),
		ModelPath: cfg.ModelPath,
		OutputDir: cfg.OutputDir,
		Seed:      seed,
		Requested: cfg.NumImages,
		StartedAt: time.Now().UTC(),
	}
	o.log.Info("batch started",
		zap.String("run_id", report.RunID),
		zap.String("model", cfg.ModelPath),
		zap.Int("views", cfg.NumImages),
		zap.Int64("seed", seed),
	)

	if err := o.prepareScene(ctx, eng, cfg); err != nil {
		return Report{}, err
	}
	dispatcher.SceneCreated(ctx, &hooks.Context{
		Engine:    eng,
		View:      -1,
		OutputDir: cfg.OutputDir,
	})

	lens := cfg.Render.Lens()
	settings := engine.ImageSettings{Format: cfg.Render.Format}

	var fatalErr error
	for i, pose := range poses {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		record := ViewRecord{Index: i, Pose: pose}
		renderPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("%03d_render.png", i))

		err := o.renderView(ctx, eng, dispatcher, cfg, i, pose, lens, settings, renderPath, &record)
		if err != nil {
			o.log.Warn("view skipped", zap.Int("view", i), zap.Error(err))
			record.Skipped = true
			record.Error = err.Error()
			report.Skipped++
			report.Views = append(report.Views, record)

			var fatal *engine.FatalError
			if errors.As(err, &fatal) {
				fatalErr = fmt.Errorf("orchestrator: view %d: %w", i, err)
				break
			}
			continue
		}
		record.RenderPath = renderPath
		report.Rendered++
		report.Views = append(report.Views, record)
	}

	// A fatal error ends the view loop early but the batch still finishes:
	// hooks get their completion event and the partial metadata and summary
	// reach disk.
	dispatcher.BatchCompleted(ctx, &hooks.Context{
		Engine:    eng,
		View:      -1,
		OutputDir: cfg.OutputDir,
	})

	report.HookFailures = hookFailures(dispatcher.Failures())
	report.FinishedAt = time.Now().UTC()

	if err := writeMetadata(cfg, report.Views); err != nil {
		return report, err
	}
	if err := writeSummary(cfg.OutputDir, report); err != nil {
		return report, err
	}

	if fatalErr != nil {
		o.log.Error("batch aborted",
			zap.String("run_id", report.RunID),
			zap.Int("rendered", report.Rendered),
			zap.Int("skipped", report.Skipped),
			zap.Error(fatalErr),
		)
		return report, fatalErr
	}

	o.log.Info("batch completed",
		zap.String("run_id", report.RunID),
		zap.Int("rendered", report.Rendered),
		zap.Int("skipped", report.Skipped),
		zap.Int("hook_failures", len(report.HookFailures)),
	)
	return report, nil
}

func (o *Orchestrator) prepareScene(ctx context.Context, eng engine.Engine, cfg config.Config) error {
	if err := eng.ResetScene(ctx); err != nil {
		return fmt.Errorf("orchestrator: reset scene: %w", err)
	}
	if err := eng.LoadModel(ctx, cfg.ModelPath); err != nil {
		return fmt.Errorf("orchestrator: load model %s: %w", cfg.ModelPath, err)
	}

	lights := make([]engine.Light, 0, len(cfg.Lights))
	for _, l := range cfg.Lights {
		lights = append(lights, l.Light())
	}
	if err := eng.SetLights(ctx, lights); err != nil {
		return fmt.Errorf("orchestrator: set lights: %w", err)
	}
	return nil
}

func (o *Orchestrator) renderView(
	ctx context.Context,
	eng engine.Engine,
	dispatcher *hooks.Dispatcher,
	cfg config.Config,
	view int,
	pose geom.Pose,
	lens engine.LensParams,
	settings engine.ImageSettings,
	renderPath string,
	record *ViewRecord,
) error {
	cam, err := eng.CreateCamera(ctx, pose, lens)
	if err != nil {
		return fmt.Errorf("create camera: %w", err)
	}

	hctx := &hooks.Context{
		Engine:    eng,
		Camera:    cam,
		View:      view,
		OutputDir: cfg.OutputDir,
	}
	dispatcher.CameraCreated(ctx, hctx)

	if err := eng.RenderToFile(ctx, cam, renderPath, settings); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	hctx.RenderPath = renderPath
	dispatcher.ViewRendered(ctx, hctx)
	record.Artifacts = hctx.Artifacts()
	return nil
}
