// Package convert defines the dataset converter contract. A converter reads
// the per-view artifacts of one rendered batch directory and rearranges them
// into the directory layout a downstream training pipeline expects. Views
// with missing required artifacts are skipped with a warning; conversion is
// idempotent and never mutates the input batch.
package convert

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNoViews marks a conversion that produced no output because the input
// held no convertible views.
var ErrNoViews = errors.New("convert: no convertible views")

// Options carries cross-converter settings.
type Options struct {
	// Log receives per-view progress and warnings; nil stays silent.
	Log *zap.Logger
}

// Logger returns the configured logger, never nil.
func (o Options) Logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

// Report summarises one conversion.
type Report struct {
	// Converted counts the views written to the output layout.
	Converted int
	// Skipped counts the views left out for missing artifacts.
	Skipped int
	// Warnings holds one human-readable line per skipped view or anomaly.
	Warnings []string
}

// Converter transforms one batch directory into a dataset layout.
type Converter interface {
	// Name is the format identifier used for registry lookup.
	Name() string
	// Convert reads inputDir and writes the converted dataset under
	// outputDir, creating it as needed.
	Convert(ctx context.Context, inputDir, outputDir string, opts Options) (Report, error)
}
