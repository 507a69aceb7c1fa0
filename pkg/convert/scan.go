package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-rendergen/pkg/geom"
)

// Batch-scope artifact names mirrored from the render pipeline.
const (
	IntrinsicsFileName    = "camera_intrinsics.txt"
	BoundingBoxFileName   = "bounding_box.txt"
	NormalizationFileName = "normalization_matrix.json"
)

var (
	renderRe = regexp.MustCompile(`^(\d{3})_render\.png$`)
	passRe   = regexp.MustCompile(`^(\d{3})_(mask|masked|depth|normal)_\d{3}\.png$`)
	cameraRe = regexp.MustCompile(`^(\d{3})_(camera_extrinsics|camera_projection_matrix)\.txt$`)
)

// View collects every artifact discovered for one rendered view. Paths are
// absolute; an empty path means the artifact was not produced.
type View struct {
	Index      int
	RenderPath string

	MaskPath   string
	MaskedPath string
	DepthPath  string
	NormalPath string

	ExtrinsicsPath string
	ProjectionPath string
}

// Batch is the scanned content of one batch directory. Views are sorted by
// index; indices may be sparse when views were skipped at render time.
type Batch struct {
	Dir   string
	Views []View

	IntrinsicsPath    string
	BoundingBoxPath   string
	NormalizationPath string
}

// ScanBatch inventories the per-view and batch-scope artifacts of dir. Only
// views with a main render are listed; companion artifacts of a view that
// never rendered are ignored.
func ScanBatch(dir string) (Batch, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Batch{}, fmt.Errorf("convert: scan %s: %w", dir, err)
	}

	batch := Batch{Dir: dir}
	views := map[int]*View{}
	view := func(index int) *View {
		v, ok := views[index]
		if !ok {
			v = &View{Index: index}
			views[index] = v
		}
		return v
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		switch name {
		case IntrinsicsFileName:
			batch.IntrinsicsPath = path
			continue
		case BoundingBoxFileName:
			batch.BoundingBoxPath = path
			continue
		case NormalizationFileName:
			batch.NormalizationPath = path
			continue
		}

		if m := renderRe.FindStringSubmatch(name); m != nil {
			view(mustAtoi(m[1])).RenderPath = path
			continue
		}
		if m := passRe.FindStringSubmatch(name); m != nil {
			v := view(mustAtoi(m[1]))
			switch m[2] {
			case "mask":
				v.MaskPath = path
			case "masked":
				v.MaskedPath = path
			case "depth":
				v.DepthPath = path
			case "normal":
				v.NormalPath = path
			}
			continue
		}
		if m := cameraRe.FindStringSubmatch(name); m != nil {
			v := view(mustAtoi(m[1]))
			switch m[2] {
			case "camera_extrinsics":
				v.ExtrinsicsPath = path
			case "camera_projection_matrix":
				v.ProjectionPath = path
			}
		}
	}

	for _, v := range views {
		if v.RenderPath == "" {
			continue
		}
		batch.Views = append(batch.Views, *v)
	}
	sort.Slice(batch.Views, func(i, j int) bool {
		return batch.Views[i].Index < batch.Views[j].Index
	})
	return batch, nil
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("convert: %q matched a digit pattern: %v", s, err))
	}
	return n
}

// LoadMatrix reads a whitespace-separated float matrix and checks its
// dimensions.
func LoadMatrix(path string, rows, cols int) ([][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("convert: read %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != rows {
		return nil, fmt.Errorf("convert: %s has %d rows, want %d", path, len(lines), rows)
	}

	out := make([][]float64, rows)
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != cols {
			return nil, fmt.Errorf("convert: %s row %d has %d columns, want %d", path, i, len(fields), cols)
		}
		out[i] = make([]float64, cols)
		for j, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("convert: %s row %d column %d: %w", path, i, j, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// LoadMat3 reads a 3x3 matrix file, typically camera_intrinsics.txt.
func LoadMat3(path string) (geom.Mat3, error) {
	rows, err := LoadMatrix(path, 3, 3)
	if err != nil {
		return geom.Mat3{}, err
	}
	var m geom.Mat3
	for i := 0; i < 3; i++ {
		copy(m[i][:], rows[i])
	}
	return m, nil
}

// LoadMat34 reads a 3x4 matrix file, extrinsics or projection.
func LoadMat34(path string) (geom.Mat34, error) {
	rows, err := LoadMatrix(path, 3, 4)
	if err != nil {
		return geom.Mat34{}, err
	}
	var m geom.Mat34
	for i := 0; i < 3; i++ {
		copy(m[i][:], rows[i])
	}
	return m, nil
}

// LoadNormalization reads normalization_matrix.json as a 4x4 matrix.
func LoadNormalization(path string) (geom.Mat4, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return geom.Mat4{}, fmt.Errorf("convert: read %s: %w", path, err)
	}
	var raw [4][4]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return geom.Mat4{}, fmt.Errorf("convert: parse %s: %w", path, err)
	}
	return geom.Mat4(raw), nil
}

// LoadBoundingBox reads bounding_box.txt: six box extents and the initial
// voxel size on a single line.
func LoadBoundingBox(path string) ([7]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [7]float64{}, fmt.Errorf("convert: read %s: %w", path, err)
	}
	fields := strings.Fields(strings.TrimSpace(string(data)))
	if len(fields) != 7 {
		return [7]float64{}, fmt.Errorf("convert: %s has %d fields, want 7", path, len(fields))
	}
	var out [7]float64
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return [7]float64{}, fmt.Errorf("convert: %s field %d: %w", path, i, err)
		}
		out[i] = v
	}
	return out, nil
}
