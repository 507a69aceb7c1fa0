package hooks_test

import (
	"context"
	"encoding/json"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-rendergen/pkg/engine"
	"github.com/goliatone/go-rendergen/pkg/engine/preview"
	"github.com/goliatone/go-rendergen/pkg/geom"
	"github.com/goliatone/go-rendergen/pkg/hooks"
)

func newViewContext(t *testing.T, view int) (*hooks.Context, *preview.Engine) {
	t.Helper()

	eng := preview.New(64, 48)
	ctx := context.Background()
	if err := eng.LoadModel(ctx, "model.obj"); err != nil {
		t.Fatalf("load model: %v", err)
	}

	pose := geom.LookAt(geom.NewVec3(0, -4, 2), geom.NewVec3(0, 0, 0))
	lens := engine.LensParams{FocalLengthMM: 35, SensorWidthMM: 36, SensorHeightMM: 24}
	cam, err := eng.CreateCamera(ctx, pose, lens)
	if err != nil {
		t.Fatalf("create camera: %v", err)
	}

	return &hooks.Context{
		Engine:    eng,
		Camera:    cam,
		View:      view,
		OutputDir: t.TempDir(),
	}, eng
}

func parseMatrixFile(t *testing.T, path string) [][]float64 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var rows [][]float64
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var row []float64
		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				t.Fatalf("parse %q in %s: %v", field, path, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestCameraIntrinsicsWritesOnce(t *testing.T) {
	hctx, _ := newViewContext(t, 0)
	h, err := hooks.NewCameraIntrinsics(nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	obs := h.(hooks.CameraObserver)

	if err := obs.OnCameraCreated(context.Background(), hctx); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	path := filepath.Join(hctx.OutputDir, hooks.IntrinsicsFileName)
	first, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}

	rows := parseMatrixFile(t, path)
	if len(rows) != 3 || len(rows[0]) != 3 {
		t.Fatalf("expected 3x3 matrix, got %v", rows)
	}
	wantF := 35.0 * 64 / 36
	if math.Abs(rows[0][0]-wantF) > 1e-6 || math.Abs(rows[1][1]-wantF) > 1e-6 {
		t.Fatalf("focal mismatch: got %v/%v want %v", rows[0][0], rows[1][1], wantF)
	}
	if rows[0][2] != 32 || rows[1][2] != 24 {
		t.Fatalf("principal point mismatch: %v", rows)
	}

	// The second camera of the batch must not rewrite the shared file.
	if err := obs.OnCameraCreated(context.Background(), hctx); err != nil {
		t.Fatalf("second callback: %v", err)
	}
	second, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat after second callback: %v", err)
	}
	if second.ModTime() != first.ModTime() {
		t.Fatalf("intrinsics rewritten on second camera")
	}
}

func TestCameraExtrinsicsAndProjectionFiles(t *testing.T) {
	hctx, _ := newViewContext(t, 7)

	ext, _ := hooks.NewCameraExtrinsics(nil)
	if err := ext.(hooks.CameraObserver).OnCameraCreated(context.Background(), hctx); err != nil {
		t.Fatalf("extrinsics: %v", err)
	}
	extRows := parseMatrixFile(t, filepath.Join(hctx.OutputDir, "007_camera_extrinsics.txt"))
	if len(extRows) != 3 || len(extRows[0]) != 4 {
		t.Fatalf("expected 3x4 extrinsics, got %v", extRows)
	}

	proj, _ := hooks.NewCameraProjection(nil)
	if err := proj.(hooks.CameraObserver).OnCameraCreated(context.Background(), hctx); err != nil {
		t.Fatalf("projection: %v", err)
	}
	projRows := parseMatrixFile(t, filepath.Join(hctx.OutputDir, "007_camera_projection_matrix.txt"))
	if len(projRows) != 3 || len(projRows[0]) != 4 {
		t.Fatalf("expected 3x4 projection, got %v", projRows)
	}

	// P = K [R|t]: verify one entry against the direct product.
	w, ht := hctx.Engine.Resolution()
	k := hctx.Camera.Lens.Intrinsics(w, ht)
	want := hctx.Camera.Pose.ExtrinsicsCV().MulMat3(k)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(projRows[i][j]-want[i][j]) > 1e-9 {
				t.Fatalf("projection[%d][%d] = %v, want %v", i, j, projRows[i][j], want[i][j])
			}
		}
	}
}

func TestBoundingBoxHook(t *testing.T) {
	hctx, _ := newViewContext(t, 0)

	h, err := hooks.NewBoundingBox(map[string]any{"voxel_size": 0.25})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := h.(hooks.SceneObserver).OnSceneCreated(context.Background(), hctx); err != nil {
		t.Fatalf("callback: %v", err)
	}

	rows := parseMatrixFile(t, filepath.Join(hctx.OutputDir, hooks.BoundingBoxFileName))
	if len(rows) != 1 || len(rows[0]) != 7 {
		t.Fatalf("expected one line of 7 fields, got %v", rows)
	}
	want := []float64{-1, -1, -1, 1, 1, 1, 0.25}
	for i, v := range want {
		if rows[0][i] != v {
			t.Fatalf("field %d = %v, want %v", i, rows[0][i], v)
		}
	}
}

func TestBoundingBoxDefaultVoxelSize(t *testing.T) {
	hctx, _ := newViewContext(t, 0)

	h, _ := hooks.NewBoundingBox(nil)
	if err := h.(hooks.SceneObserver).OnSceneCreated(context.Background(), hctx); err != nil {
		t.Fatalf("callback: %v", err)
	}
	rows := parseMatrixFile(t, filepath.Join(hctx.OutputDir, hooks.BoundingBoxFileName))
	// Largest extent is 2, so the derived voxel size is 2/128.
	if got := rows[0][6]; math.Abs(got-2.0/128) > 1e-12 {
		t.Fatalf("voxel size = %v, want %v", got, 2.0/128)
	}
}

func TestBoundingBoxRequiresBounds(t *testing.T) {
	hctx, eng := newViewContext(t, 0)
	if err := eng.ResetScene(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}

	h, _ := hooks.NewBoundingBox(nil)
	if err := h.(hooks.SceneObserver).OnSceneCreated(context.Background(), hctx); err == nil {
		t.Fatal("expected error when the engine has no bounds")
	}
}

func TestNormalizationMatrixHook(t *testing.T) {
	hctx, _ := newViewContext(t, 0)

	h, _ := hooks.NewNormalizationMatrix(nil)
	if err := h.(hooks.SceneObserver).OnSceneCreated(context.Background(), hctx); err != nil {
		t.Fatalf("callback: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(hctx.OutputDir, hooks.NormalizationFileName))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var mat [4][4]float64
	if err := json.Unmarshal(data, &mat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Half diagonal of the unit cube [-1,1]^3 is sqrt(3).
	wantS := 1 / math.Sqrt(3)
	for i := 0; i < 3; i++ {
		if math.Abs(mat[i][i]-wantS) > 1e-12 {
			t.Fatalf("scale[%d] = %v, want %v", i, mat[i][i], wantS)
		}
	}
	if mat[3][3] != 1 {
		t.Fatalf("homogeneous corner = %v", mat[3][3])
	}
}

func TestPassHooksWritePNGs(t *testing.T) {
	hctx, _ := newViewContext(t, 3)
	factories := hooks.DefaultFactories()

	for _, name := range []string{"depth", "normal", "mask", "masked"} {
		h, err := factories[name](nil)
		if err != nil {
			t.Fatalf("construct %s: %v", name, err)
		}
		if err := h.(hooks.ViewObserver).OnViewRendered(context.Background(), hctx); err != nil {
			t.Fatalf("%s callback: %v", name, err)
		}

		path := filepath.Join(hctx.OutputDir, "003_"+name+"_000.png")
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open %s: %v", path, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
			t.Fatalf("%s size = %dx%d, want 64x48", name, b.Dx(), b.Dy())
		}
	}

	if got := len(hctx.Artifacts()); got != 4 {
		t.Fatalf("expected 4 artifacts, got %d", got)
	}
}

func TestDefaultFactoriesCoverAllIdentifiers(t *testing.T) {
	factories := hooks.DefaultFactories()
	for _, name := range []string{
		"camera_intrinsics", "camera_extrinsics", "camera_projection_matrix",
		"bounding_box", "normalization_matrix",
		"depth", "normal", "mask", "masked",
	} {
		factory, ok := factories[name]
		if !ok {
			t.Fatalf("missing factory %q", name)
		}
		h, err := factory(nil)
		if err != nil {
			t.Fatalf("construct %q: %v", name, err)
		}
		if h.Name() != name {
			t.Fatalf("hook %q reports name %q", name, h.Name())
		}
	}
}
