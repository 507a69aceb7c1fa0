// Package rendergen generates synthetic multi-view image datasets: it
// samples camera poses on a sphere shell around a model, drives a rendering
// engine through a reproducible batch loop with lifecycle hooks, and
// converts the resulting artifacts into downstream dataset layouts.
//
// The root package re-exports the common entry points; the full APIs live
// in the pkg subpackages.
package rendergen

import (
	"context"

	"github.com/goliatone/go-rendergen/pkg/config"
	"github.com/goliatone/go-rendergen/pkg/convert"
	"github.com/goliatone/go-rendergen/pkg/converters/colmap"
	"github.com/goliatone/go-rendergen/pkg/converters/idr"
	"github.com/goliatone/go-rendergen/pkg/converters/npz"
	"github.com/goliatone/go-rendergen/pkg/converters/nsvf"
	"github.com/goliatone/go-rendergen/pkg/orchestrator"
)

// Config is the validated batch configuration.
type Config = config.Config

// Report summarises one rendered batch.
type Report = orchestrator.Report

// ViewRecord is the per-view entry of a batch report.
type ViewRecord = orchestrator.ViewRecord

// DefaultConfig returns the fully-defaulted batch configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewOrchestrator exposes the batch orchestrator constructor from the
// top-level module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// RenderBatch runs one batch with the given configuration. It is the
// simplest entry point for callers that just want a rendered batch
// directory.
func RenderBatch(ctx context.Context, cfg Config, options ...orchestrator.Option) (Report, error) {
	return orchestrator.New(options...).Run(ctx, cfg)
}

// NewConverterRegistry returns a registry pre-populated with every built-in
// dataset converter.
func NewConverterRegistry() *convert.Registry {
	registry := convert.NewRegistry()
	registry.MustRegister(idr.New())
	registry.MustRegister(nsvf.New())
	registry.MustRegister(colmap.New())
	registry.MustRegister(npz.New())
	return registry
}

// Convert runs the named converter over a rendered batch directory.
func Convert(ctx context.Context, format, inputDir, outputDir string, opts convert.Options) (convert.Report, error) {
	converter, err := NewConverterRegistry().Get(format)
	if err != nil {
		return convert.Report{}, err
	}
	return converter.Convert(ctx, inputDir, outputDir, opts)
}
