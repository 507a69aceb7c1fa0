package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goliatone/go-rendergen/pkg/config"
	"github.com/goliatone/go-rendergen/pkg/geom"
	"github.com/goliatone/go-rendergen/pkg/hooks"
)

// Batch-scope file names written at the end of a run.
const (
	MetadataFileName = "metadata.csv"
	SummaryFileName  = "summary.json"
)

// Report is the outcome of one batch. It is returned from Run and persisted
// as summary.json in the output directory.
type Report struct {
	RunID     string    `json:"run_id"`
	ModelPath string    `json:"model_path"`
	OutputDir string    `json:"output_dir"`
	Seed      int64     `json:"seed"`
	Requested int       `json:"requested"`
	Rendered  int       `json:"rendered"`
	Skipped   int       `json:"skipped"`
	StartedAt time.Time `json:"started_at"`
	// FinishedAt stays zero when the batch aborts early.
	FinishedAt time.Time `json:"finished_at"`

	Views        []ViewRecord  `json:"views"`
	HookFailures []HookFailure `json:"hook_failures,omitempty"`
}

// HookFailure is the serialisable form of a hook callback failure.
type HookFailure struct {
	Hook  string `json:"hook"`
	Event string `json:"event"`
	View  int    `json:"view"`
	Error string `json:"error"`
}

func hookFailures(failures []hooks.Failure) []HookFailure {
	if len(failures) == 0 {
		return nil
	}
	out := make([]HookFailure, 0, len(failures))
	for _, f := range failures {
		out = append(out, HookFailure{
			Hook:  f.Hook,
			Event: string(f.Event),
			View:  f.View,
			Error: f.Err.Error(),
		})
	}
	return out
}

// ViewRecord captures the outcome of a single view.
type ViewRecord struct {
	Index int       `json:"index"`
	Pose  geom.Pose `json:"pose"`
	// RenderPath is empty for skipped views.
	RenderPath string   `json:"render_path,omitempty"`
	Artifacts  []string `json:"artifacts,omitempty"`
	Skipped    bool     `json:"skipped,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// writeMetadata writes metadata.csv: a header row, then one row per
// rendered view holding the render file name, the sixteen row-major
// camera-to-world matrix values and the focal length in millimetres.
// Skipped views leave no row.
func writeMetadata(cfg config.Config, views []ViewRecord) error {
	path := filepath.Join(cfg.OutputDir, MetadataFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("orchestrator: create %s: %w", path, err)
	}

	header := make([]string, 0, 18)
	header = append(header, "filename")
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			header = append(header, fmt.Sprintf("m%d%d", i, j))
		}
	}
	header = append(header, "focal")

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	for _, view := range views {
		if view.Skipped {
			continue
		}
		row := make([]string, 0, 18)
		row = append(row, filepath.Base(view.RenderPath))
		for _, v := range view.Pose.CameraToWorld().Flatten() {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		row = append(row, strconv.FormatFloat(cfg.Render.FocalLengthMM, 'f', 2, 64))
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("orchestrator: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("orchestrator: close %s: %w", path, err)
	}
	return nil
}

// writeSummary persists the report as indented JSON.
func writeSummary(outputDir string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal summary: %w", err)
	}
	path := filepath.Join(outputDir, SummaryFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	return nil
}
