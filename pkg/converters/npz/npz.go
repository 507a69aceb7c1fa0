// Package npz assembles a generic NeRF-style training archive from one or
// more rendered batch directories. Every batch contributes the views listed
// in its metadata.csv; the result is a single compressed archive holding
// images (N,H,W,3) uint8, poses (N,4,4) float64 and focal (1,) float64.
package npz

import (
	"context"
	"encoding/csv"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-rendergen/internal/npy"
	"github.com/goliatone/go-rendergen/pkg/convert"
)

// Output and input file names of the assembler.
const (
	DatasetFileName  = "dataset.npz"
	MetadataFileName = "metadata.csv"
)

// Converter implements convert.Converter for the NPZ dataset archive.
type Converter struct{}

// New returns an NPZ assembler.
func New() *Converter { return &Converter{} }

// Name implements convert.Converter.
func (*Converter) Name() string { return "npz" }

// Convert scans inputDir for batch subdirectories (names starting with
// "batch", sorted), reads each metadata.csv and aggregates the listed
// images with their poses into outputDir/dataset.npz. The focal length of
// the first batch wins; mismatches are warned about, never fatal. Rows
// whose image is missing or whose resolution differs from the first image
// are skipped with a warning.
func (c *Converter) Convert(ctx context.Context, inputDir, outputDir string, opts convert.Options) (convert.Report, error) {
	log := opts.Logger()
	var report convert.Report

	batches, err := batchDirs(inputDir)
	if err != nil {
		return report, err
	}
	if len(batches) == 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("no batch directories under %s", inputDir))
	}

	var (
		images        []byte
		poses         []float64
		focal         float64
		focalSet      bool
		width, height int
	)

	for _, dir := range batches {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rows, err := readMetadata(filepath.Join(dir, MetadataFileName))
		if err != nil {
			report.Warnings = append(report.Warnings, err.Error())
			log.Warn("batch skipped", zap.String("dir", dir), zap.Error(err))
			continue
		}

		for _, row := range rows {
			if !focalSet {
				focal = row.focal
				focalSet = true
			} else if row.focal != focal {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("focal mismatch for %s: %v, keeping %v", row.filename, row.focal, focal))
			}

			pixels, w, h, err := decodeRGB(filepath.Join(dir, row.filename))
			if err != nil {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s skipped: %v", row.filename, err))
				report.Skipped++
				log.Warn("image skipped", zap.String("image", row.filename), zap.Error(err))
				continue
			}
			if width == 0 {
				width, height = w, h
			} else if w != width || h != height {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("%s skipped: resolution %dx%d differs from %dx%d", row.filename, w, h, width, height))
				report.Skipped++
				continue
			}

			images = append(images, pixels...)
			poses = append(poses, row.pose[:]...)
			report.Converted++
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return report, fmt.Errorf("npz: create %s: %w", outputDir, err)
	}
	if err := writeDataset(filepath.Join(outputDir, DatasetFileName), report.Converted, height, width, images, poses, focal); err != nil {
		return report, err
	}

	log.Info("dataset archive written",
		zap.String("output", filepath.Join(outputDir, DatasetFileName)),
		zap.Int("converted", report.Converted),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func batchDirs(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("npz: scan %s: %w", inputDir, err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(strings.ToLower(entry.Name()), "batch") {
			dirs = append(dirs, filepath.Join(inputDir, entry.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

type metadataRow struct {
	filename string
	pose     [16]float64
	focal    float64
}

// readMetadata parses metadata.csv: a header row followed by
// filename, m00..m33, focal. Malformed rows are dropped silently, matching
// the forgiving CSV handling of the render side.
func readMetadata(path string) ([]metadataRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npz: read %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("npz: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var rows []metadataRow
	for _, record := range records[1:] {
		if len(record) < 18 {
			continue
		}
		row := metadataRow{filename: record[0]}
		ok := true
		for i := 0; i < 16; i++ {
			v, err := strconv.ParseFloat(record[1+i], 64)
			if err != nil {
				ok = false
				break
			}
			row.pose[i] = v
		}
		if !ok {
			continue
		}
		focal, err := strconv.ParseFloat(record[17], 64)
		if err != nil {
			continue
		}
		row.focal = focal
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeRGB loads a PNG and flattens it to row-major RGB bytes.
func decodeRGB(path string) ([]byte, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return out, b.Dx(), b.Dy(), nil
}

func writeDataset(path string, n, height, width int, images []byte, poses []float64, focal float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npz: create %s: %w", path, err)
	}

	w := npy.NewArchiveWriter(f)
	if err := w.AppendUint8("images", []int{n, height, width, 3}, images); err != nil {
		f.Close()
		return err
	}
	if err := w.AppendFloat64("poses", []int{n, 4, 4}, poses); err != nil {
		f.Close()
		return err
	}
	if err := w.AppendFloat64("focal", []int{1}, []float64{focal}); err != nil {
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("npz: close %s: %w", path, err)
	}
	return nil
}
