// Package idr converts a rendered batch into the IDR dataset layout:
// image/NNN.png, mask/NNN.png and a cameras.npz archive holding a world
// matrix and a scale matrix per view. Output views are re-indexed densely,
// preserving the relative order of the source views.
package idr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/goliatone/go-rendergen/internal/npy"
	"github.com/goliatone/go-rendergen/pkg/convert"
	"github.com/goliatone/go-rendergen/pkg/geom"
)

// CamerasFileName is the matrix archive consumed by IDR.
const CamerasFileName = "cameras.npz"

// Converter implements convert.Converter for the IDR layout.
type Converter struct{}

// New returns an IDR converter.
func New() *Converter { return &Converter{} }

// Name implements convert.Converter.
func (*Converter) Name() string { return "idr" }

// Convert requires a render, a mask and a projection matrix per view. The
// world matrix of a view is its projection lifted to 4x4 and composed with
// the batch normalization matrix; without normalization_matrix.json the
// identity is used and the world matrix equals the lifted projection.
func (c *Converter) Convert(ctx context.Context, inputDir, outputDir string, opts convert.Options) (convert.Report, error) {
	log := opts.Logger()
	var report convert.Report

	batch, err := convert.ScanBatch(inputDir)
	if err != nil {
		return report, err
	}

	normalization := geom.IdentityMat4()
	if batch.NormalizationPath != "" {
		normalization, err = convert.LoadNormalization(batch.NormalizationPath)
		if err != nil {
			return report, err
		}
	}

	imageDir := filepath.Join(outputDir, "image")
	maskDir := filepath.Join(outputDir, "mask")
	for _, dir := range []string{imageDir, maskDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, fmt.Errorf("idr: create %s: %w", dir, err)
		}
	}

	var worldMats, scaleMats []geom.Mat4
	out := 0
	for _, view := range batch.Views {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if view.MaskPath == "" || view.ProjectionPath == "" {
			warning := fmt.Sprintf("view %03d incomplete, skipped", view.Index)
			report.Warnings = append(report.Warnings, warning)
			report.Skipped++
			log.Warn("view skipped",
				zap.Int("view", view.Index),
				zap.Bool("mask", view.MaskPath != ""),
				zap.Bool("projection", view.ProjectionPath != ""),
			)
			continue
		}

		projection, err := convert.LoadMat34(view.ProjectionPath)
		if err != nil {
			return report, err
		}
		world := geom.Mat4From34(projection).Mul(normalization)

		if err := convert.CopyFile(view.RenderPath, filepath.Join(imageDir, fmt.Sprintf("%03d.png", out))); err != nil {
			return report, err
		}
		if err := convert.CopyFile(view.MaskPath, filepath.Join(maskDir, fmt.Sprintf("%03d.png", out))); err != nil {
			return report, err
		}

		worldMats = append(worldMats, world)
		scaleMats = append(scaleMats, normalization)
		out++
		report.Converted++
	}

	if err := writeCameras(filepath.Join(outputDir, CamerasFileName), worldMats, scaleMats); err != nil {
		return report, err
	}

	log.Info("idr dataset written",
		zap.String("output", outputDir),
		zap.Int("converted", report.Converted),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func writeCameras(path string, worldMats, scaleMats []geom.Mat4) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("idr: create %s: %w", path, err)
	}

	w := npy.NewArchiveWriter(f)
	for i, m := range worldMats {
		if err := w.AppendFloat64(fmt.Sprintf("world_mat_%d", i), []int{4, 4}, m.Flatten()); err != nil {
			f.Close()
			return err
		}
	}
	for i, m := range scaleMats {
		if err := w.AppendFloat64(fmt.Sprintf("scale_mat_%d", i), []int{4, 4}, m.Flatten()); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("idr: close %s: %w", path, err)
	}
	return nil
}
