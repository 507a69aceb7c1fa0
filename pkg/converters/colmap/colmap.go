// Package colmap converts a rendered batch into a COLMAP project with known
// camera poses: images/, masks/, a sparse/manually_created/ text model and a
// pre-populated preloaded.db so COLMAP skips its own pose estimation.
package colmap

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

// DatabaseFileName is the SQLite project database.
const DatabaseFileName = "preloaded.db"

// openCVModel is COLMAP's numeric identifier for the OPENCV camera model.
const openCVModel = 4

// Converter implements convert.Converter for the COLMAP project layout.
type Converter struct{}

// New returns a COLMAP converter.
func New() *Converter { return &Converter{} }

// Name implements convert.Converter.
func (*Converter) Name() string { return "colmap" }

// Convert requires camera_intrinsics.txt at the batch root and, per view, a
// render, a mask and an extrinsics matrix. Masks are written with the
// doubled extension (NNN.png.png) COLMAP uses to pair a mask with its
// image. Each images.txt row carries the camera-to-world quaternion and
// translation obtained by inverting the extrinsics, followed by a blank
// line in place of the 2D point list.
func (c *Converter) Convert(ctx context.Context, inputDir, outputDir string, opts convert.Options) (convert.Report, error) {
	log := opts.Logger()
	var report convert.Report

	batch, err := convert.ScanBatch(inputDir)
	if err != nil {
		return report, err
	}
	if batch.IntrinsicsPath == "" {
		return report, fmt.Errorf("colmap: %s has no camera_intrinsics.txt", inputDir)
	}

	k, err := convert.LoadMat3(batch.IntrinsicsPath)
	if err != nil {
		return report, err
	}
	fx, fy, cx, cy := k[0][0], k[1][1], k[0][2], k[1][2]
	// The principal point sits at the image centre, so it encodes the
	// resolution.
	width := int(cx * 2)
	height := int(cy * 2)

	imageDir := filepath.Join(outputDir, "images")
	maskDir := filepath.Join(outputDir, "masks")
	sparseDir := filepath.Join(outputDir, "sparse", "manually_created")
	for _, dir := range []string{imageDir, maskDir, sparseDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, fmt.Errorf("colmap: create %s: %w", dir, err)
		}
	}

	dbPath := filepath.Join(outputDir, DatabaseFileName)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return report, fmt.Errorf("colmap: remove stale %s: %w", dbPath, err)
	}
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return report, err
	}
	defer db.Close()

	cameraID, err := db.AddCamera(openCVModel, width, height, []float64{fx, fy, cx, cy, 0, 0, 0, 0}, true)
	if err != nil {
		return report, err
	}

	var camerasTxt strings.Builder
	camerasTxt.WriteString("# CAMERA_ID, MODEL, WIDTH, HEIGHT, FX, FY, CX, CY, K1, K2, P1, P2\n")
	fmt.Fprintf(&camerasTxt, "%d OPENCV %d %d %v %v %v %v 0 0 0 0\n", cameraID, width, height, fx, fy, cx, cy)
	if err := os.WriteFile(filepath.Join(sparseDir, "cameras.txt"), []byte(camerasTxt.String()), 0o644); err != nil {
		return report, fmt.Errorf("colmap: write cameras.txt: %w", err)
	}

	var imagesTxt strings.Builder
	imagesTxt.WriteString("# IMAGE_ID, QW, QX, QY, QZ, TX, TY, TZ, CAMERA_ID, NAME\n")

	imageID := int64(0)
	for _, view := range batch.Views {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if view.MaskPath == "" || view.ExtrinsicsPath == "" {
			warning := fmt.Sprintf("view %03d incomplete, skipped", view.Index)
			report.Warnings = append(report.Warnings, warning)
			report.Skipped++
			log.Warn("view skipped",
				zap.Int("view", view.Index),
				zap.Bool("mask", view.MaskPath != ""),
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

		name := fmt.Sprintf("%03d.png", view.Index)
		if err := convert.CopyFile(view.RenderPath, filepath.Join(imageDir, name)); err != nil {
			return report, err
		}
		if err := convert.CopyFile(view.MaskPath, filepath.Join(maskDir, name+".png")); err != nil {
			return report, err
		}
		if err := db.AddImage(imageID, name, cameraID); err != nil {
			return report, err
		}

		fmt.Fprintf(&imagesTxt, "%d %v %v %v %v %v %v %v %d %s\n\n",
			imageID, q.W, q.X, q.Y, q.Z, t.X, t.Y, t.Z, cameraID, name)
		imageID++
		report.Converted++
	}

	if err := os.WriteFile(filepath.Join(sparseDir, "images.txt"), []byte(imagesTxt.String()), 0o644); err != nil {
		return report, fmt.Errorf("colmap: write images.txt: %w", err)
	}
	if err := os.WriteFile(filepath.Join(sparseDir, "points3D.txt"), nil, 0o644); err != nil {
		return report, fmt.Errorf("colmap: write points3D.txt: %w", err)
	}

	log.Info("colmap project written",
		zap.String("output", outputDir),
		zap.Int("converted", report.Converted),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}
