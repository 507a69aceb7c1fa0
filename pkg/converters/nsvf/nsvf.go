// Package nsvf converts a rendered batch into the NSVF dataset layout:
// rgb/N.png holding the masked RGBA render, pose/N.txt holding the 4x4
// camera-to-world matrix, plus intrinsics.txt and bbox.txt copied from the
// batch-scope artifacts. Source view indices are preserved.
package nsvf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-rendergen/pkg/convert"
	"github.com/goliatone/go-rendergen/pkg/geom"
)

// Batch-scope output names expected by NSVF.
const (
	IntrinsicsFileName  = "intrinsics.txt"
	BoundingBoxFileName = "bbox.txt"
)

// Converter implements convert.Converter for the NSVF layout.
type Converter struct{}

// New returns an NSVF converter.
func New() *Converter { return &Converter{} }

// Name implements convert.Converter.
func (*Converter) Name() string { return "nsvf" }

// Convert requires a mask, a masked RGBA render and an extrinsics matrix
// per view. The pose file holds the camera-to-world matrix obtained by
// inverting the world-to-camera extrinsics.
func (c *Converter) Convert(ctx context.Context, inputDir, outputDir string, opts convert.Options) (convert.Report, error) {
	log := opts.Logger()
	var report convert.Report

	batch, err := convert.ScanBatch(inputDir)
	if err != nil {
		return report, err
	}

	rgbDir := filepath.Join(outputDir, "rgb")
	poseDir := filepath.Join(outputDir, "pose")
	for _, dir := range []string{rgbDir, poseDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, fmt.Errorf("nsvf: create %s: %w", dir, err)
		}
	}

	if batch.IntrinsicsPath != "" {
		if err := convert.CopyFile(batch.IntrinsicsPath, filepath.Join(outputDir, IntrinsicsFileName)); err != nil {
			return report, err
		}
	} else {
		report.Warnings = append(report.Warnings, "camera_intrinsics.txt not found, intrinsics.txt not written")
		log.Warn("missing batch intrinsics")
	}
	if batch.BoundingBoxPath != "" {
		if err := convert.CopyFile(batch.BoundingBoxPath, filepath.Join(outputDir, BoundingBoxFileName)); err != nil {
			return report, err
		}
	} else {
		report.Warnings = append(report.Warnings, "bounding_box.txt not found, bbox.txt not written")
		log.Warn("missing batch bounding box")
	}

	for _, view := range batch.Views {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if view.MaskPath == "" || view.MaskedPath == "" || view.ExtrinsicsPath == "" {
			warning := fmt.Sprintf("view %03d incomplete, skipped", view.Index)
			report.Warnings = append(report.Warnings, warning)
			report.Skipped++
			log.Warn("view skipped",
				zap.Int("view", view.Index),
				zap.Bool("mask", view.MaskPath != ""),
				zap.Bool("masked", view.MaskedPath != ""),
				zap.Bool("extrinsics", view.ExtrinsicsPath != ""),
			)
			continue
		}

		// An unreadable or degenerate extrinsics file disqualifies the view,
		// never the batch.
		extrinsics, err := convert.LoadMat34(view.ExtrinsicsPath)
		if err != nil {
			warning := fmt.Sprintf("view %03d: unreadable extrinsics, skipped", view.Index)
			report.Warnings = append(report.Warnings, warning)
			report.Skipped++
			log.Warn("view skipped", zap.Int("view", view.Index), zap.Error(err))
			continue
		}
		q, t, err := geom.DecomposeCameraToWorld(extrinsics)
		if err != nil {
			warning := fmt.Sprintf("view %03d: pose rejected, skipped", view.Index)
			report.Warnings = append(report.Warnings, warning)
			report.Skipped++
			log.Warn("view skipped", zap.Int("view", view.Index), zap.Error(err))
			continue
		}
		pose := geom.Pose{Position: t, Rotation: q.RotationMatrix()}

		if err := convert.CopyFile(view.MaskedPath, filepath.Join(rgbDir, fmt.Sprintf("%d.png", view.Index))); err != nil {
			return report, err
		}
		if err := writePose(filepath.Join(poseDir, fmt.Sprintf("%d.txt", view.Index)), pose.CameraToWorld()); err != nil {
			return report, err
		}
		report.Converted++
	}

	log.Info("nsvf dataset written",
		zap.String("output", outputDir),
		zap.Int("converted", report.Converted),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// writePose writes a 4x4 matrix with space-separated values, one row per
// line.
func writePose(path string, m geom.Mat4) error {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j := 0; j < 4; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.10f", m[i][j])
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("nsvf: write %s: %w", path, err)
	}
	return nil
}
