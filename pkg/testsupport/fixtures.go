// Package testsupport builds rendered batch fixtures for converter and
// pipeline tests by running the real orchestrator against the preview
// engine. Tests get realistic artifacts without checked-in binaries.
package testsupport

import (
	"bytes"
	"context"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-rendergen/pkg/config"
	"github.com/goliatone/go-rendergen/pkg/orchestrator"
)

// AllHooks enables every built-in hook, producing the full artifact set a
// converter could ask for.
var AllHooks = []string{
	"camera_intrinsics",
	"camera_extrinsics",
	"camera_projection_matrix",
	"bounding_box",
	"normalization_matrix",
	"depth",
	"normal",
	"mask",
	"masked",
}

// BatchConfig returns a small deterministic configuration rendering into a
// fresh temporary directory. Callers may tweak it before rendering.
func BatchConfig(t *testing.T, views int, hooks ...string) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.ModelPath = "model.obj"
	cfg.OutputDir = t.TempDir()
	cfg.NumImages = views
	cfg.Seed = 7
	cfg.Render.Width = 16
	cfg.Render.Height = 16
	cfg.Hooks.Enabled = hooks
	return cfg
}

// RenderBatch runs one batch with the given hooks enabled and returns its
// output directory.
func RenderBatch(t *testing.T, views int, hooks ...string) string {
	t.Helper()

	cfg := BatchConfig(t, views, hooks...)
	if _, err := orchestrator.New().Run(context.Background(), cfg); err != nil {
		t.Fatalf("render fixture batch: %v", err)
	}
	return cfg.OutputDir
}

// RemoveArtifacts deletes the named files from a batch directory, simulating
// views with missing companions.
func RemoveArtifacts(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			t.Fatalf("remove fixture artifact %s: %v", name, err)
		}
	}
}

// OverwriteArtifact replaces the named batch file with the given content,
// simulating corrupted or foreign artifacts.
func OverwriteArtifact(t *testing.T, dir, name, content string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("overwrite fixture artifact %s: %v", name, err)
	}
}

// MustEqualTrees fails unless both directories hold the same relative file
// paths with identical bytes.
func MustEqualTrees(t *testing.T, a, b string) {
	t.Helper()

	list := func(root string) []string {
		var paths []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
			return nil
		})
		if err != nil {
			t.Fatalf("walk %s: %v", root, err)
		}
		sort.Strings(paths)
		return paths
	}

	pathsA := list(a)
	if diff := cmp.Diff(pathsA, list(b)); diff != "" {
		t.Fatalf("tree layout differs (-%s +%s):\n%s", a, b, diff)
	}
	for _, rel := range pathsA {
		da, err := os.ReadFile(filepath.Join(a, rel))
		if err != nil {
			t.Fatalf("read %s: %v", filepath.Join(a, rel), err)
		}
		db, err := os.ReadFile(filepath.Join(b, rel))
		if err != nil {
			t.Fatalf("read %s: %v", filepath.Join(b, rel), err)
		}
		if !bytes.Equal(da, db) {
			t.Fatalf("%s differs between the two trees", rel)
		}
	}
}

// MustStat fails the test when the file does not exist.
func MustStat(t *testing.T, path string) os.FileInfo {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info
}

// MustNotExist fails the test when the file exists.
func MustNotExist(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent, stat returned %v", path, err)
	}
}

// DecodePNGSize decodes a PNG and returns its pixel dimensions.
func DecodePNGSize(t *testing.T, path string) (int, int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
