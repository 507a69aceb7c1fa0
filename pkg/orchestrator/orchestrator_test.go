package orchestrator_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-rendergen/pkg/config"
	"github.com/goliatone/go-rendergen/pkg/engine"
	"github.com/goliatone/go-rendergen/pkg/engine/preview"
	"github.com/goliatone/go-rendergen/pkg/hooks"
	"github.com/goliatone/go-rendergen/pkg/orchestrator"
)

func testConfig(t *testing.T, numImages int) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ModelPath = "model.obj"
	cfg.OutputDir = t.TempDir()
	cfg.NumImages = numImages
	cfg.Seed = 42
	cfg.Render.Width = 32
	cfg.Render.Height = 32
	return cfg
}

func readMetadata(t *testing.T, dir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, orchestrator.MetadataFileName))
	if err != nil {
		t.Fatalf("open metadata: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	return rows
}

func TestRunRendersAllViews(t *testing.T) {
	cfg := testConfig(t, 3)
	cfg.Hooks.Enabled = []string{"camera_intrinsics", "camera_extrinsics", "depth"}

	o := orchestrator.New()
	report, err := o.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Rendered != 3 || report.Skipped != 0 {
		t.Fatalf("rendered/skipped = %d/%d, want 3/0", report.Rendered, report.Skipped)
	}
	if report.RunID == "" {
		t.Fatal("missing run id")
	}
	if len(report.HookFailures) != 0 {
		t.Fatalf("unexpected hook failures: %v", report.HookFailures)
	}

	for _, name := range []string{
		"000_render.png", "001_render.png", "002_render.png",
		"camera_intrinsics.txt",
		"000_camera_extrinsics.txt", "002_camera_extrinsics.txt",
		"000_depth_000.png", "002_depth_000.png",
	} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	rows := readMetadata(t, cfg.OutputDir)
	if len(rows) != 4 {
		t.Fatalf("metadata rows = %d, want header + 3", len(rows))
	}
	for i, row := range rows {
		if len(row) != 18 {
			t.Fatalf("row %d has %d fields, want 18", i, len(row))
		}
	}
	if rows[0][0] != "filename" || rows[0][17] != "focal" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[2][0] != "001_render.png" {
		t.Fatalf("second data row filename = %q", rows[2][0])
	}
	if rows[1][17] != "35.00" {
		t.Fatalf("focal field = %q, want 35.00", rows[1][17])
	}

	var summary orchestrator.Report
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, orchestrator.SummaryFileName))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.RunID != report.RunID || summary.Rendered != 3 {
		t.Fatalf("summary does not match report: %+v", summary)
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	first, err := orchestrator.New().Run(context.Background(), testConfig(t, 4))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := orchestrator.New().Run(context.Background(), testConfig(t, 4))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	for i := range first.Views {
		if diff := cmp.Diff(first.Views[i].Pose, second.Views[i].Pose); diff != "" {
			t.Fatalf("view %d pose differs (-first +second):\n%s", i, diff)
		}
	}
}

// flakyEngine fails selected render calls while delegating everything else
// to the preview engine.
type flakyEngine struct {
	*preview.Engine
	failViews map[int]error
	calls     int
}

func (e *flakyEngine) RenderToFile(ctx context.Context, cam engine.Camera, path string, settings engine.ImageSettings) error {
	view := e.calls
	e.calls++
	if err, ok := e.failViews[view]; ok {
		return err
	}
	return e.Engine.RenderToFile(ctx, cam, path, settings)
}

func TestRunSkipsFailedViews(t *testing.T) {
	cfg := testConfig(t, 5)
	eng := &flakyEngine{
		Engine:    preview.New(cfg.Render.Width, cfg.Render.Height),
		failViews: map[int]error{2: errors.New("device lost frame")},
	}

	report, err := orchestrator.New(orchestrator.WithEngine(eng)).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Rendered != 4 || report.Skipped != 1 {
		t.Fatalf("rendered/skipped = %d/%d, want 4/1", report.Rendered, report.Skipped)
	}
	if !report.Views[2].Skipped || report.Views[2].Error == "" {
		t.Fatalf("view 2 record not marked skipped: %+v", report.Views[2])
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "002_render.png")); !os.IsNotExist(err) {
		t.Fatalf("skipped view left a render on disk: %v", err)
	}

	rows := readMetadata(t, cfg.OutputDir)
	if len(rows) != 5 {
		t.Fatalf("metadata rows = %d, want header + 4", len(rows))
	}
	var names []string
	for _, row := range rows[1:] {
		names = append(names, row[0])
	}
	want := []string{"000_render.png", "001_render.png", "003_render.png", "004_render.png"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("metadata filenames mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAbortsOnFatalError(t *testing.T) {
	cfg := testConfig(t, 5)
	eng := &flakyEngine{
		Engine:    preview.New(cfg.Render.Width, cfg.Render.Height),
		failViews: map[int]error{1: engine.Fatal(errors.New("engine crashed"))},
	}

	report, err := orchestrator.New(orchestrator.WithEngine(eng)).Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected fatal error")
	}
	var fatal *engine.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("error does not unwrap to FatalError: %v", err)
	}
	if report.Rendered != 1 || report.Skipped != 1 {
		t.Fatalf("rendered/skipped = %d/%d, want 1/1", report.Rendered, report.Skipped)
	}
	if eng.calls != 2 {
		t.Fatalf("engine saw %d render calls, want 2", eng.calls)
	}
	if len(report.Views) != 2 {
		t.Fatalf("view records = %d, want 2", len(report.Views))
	}
	if !report.Views[1].Skipped || report.Views[1].Error == "" {
		t.Fatalf("fatal view record not marked skipped: %+v", report.Views[1])
	}

	// The partial batch still flushes its reports.
	rows := readMetadata(t, cfg.OutputDir)
	if len(rows) != 2 {
		t.Fatalf("metadata rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "000_render.png" {
		t.Fatalf("metadata filename = %q", rows[1][0])
	}

	var summary orchestrator.Report
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, orchestrator.SummaryFileName))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.RunID != report.RunID || summary.Rendered != 1 || summary.Skipped != 1 {
		t.Fatalf("summary does not match report: %+v", summary)
	}
}

// failingHook always errors.
type failingHook struct{}

func (failingHook) Name() string { return "failing" }

func (failingHook) OnViewRendered(context.Context, *hooks.Context) error {
	return errors.New("disk full")
}

func TestRunSurfacesHookFailures(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Hooks.Enabled = []string{"failing"}

	o := orchestrator.New(orchestrator.WithHookFactories(map[string]hooks.Factory{
		"failing": func(map[string]any) (hooks.Hook, error) { return failingHook{}, nil },
	}))
	report, err := o.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Rendered != 2 {
		t.Fatalf("hook failures must not skip views: rendered = %d", report.Rendered)
	}
	if len(report.HookFailures) != 2 {
		t.Fatalf("hook failures = %d, want 2", len(report.HookFailures))
	}
	f := report.HookFailures[0]
	if f.Hook != "failing" || f.Event != "view_rendered" || f.View != 0 {
		t.Fatalf("unexpected failure record: %+v", f)
	}
}

func TestRunRejectsUnknownHook(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Hooks.Enabled = []string{"no_such_hook"}

	if _, err := orchestrator.New().Run(context.Background(), cfg); !errors.Is(err, hooks.ErrUnknownHook) {
		t.Fatalf("expected ErrUnknownHook, got %v", err)
	}
}

func TestRunZeroViews(t *testing.T) {
	cfg := testConfig(t, 0)

	report, err := orchestrator.New().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Rendered != 0 || report.Skipped != 0 || len(report.Views) != 0 {
		t.Fatalf("unexpected report for empty batch: %+v", report)
	}
	if rows := readMetadata(t, cfg.OutputDir); len(rows) != 1 {
		t.Fatalf("metadata rows = %d, want header only", len(rows))
	}
}
