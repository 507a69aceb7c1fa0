// Package launcher runs independent single-batch render processes in
// parallel. Each batch gets its own disjoint output subdirectory, so the
// only shared resource is the filesystem namespace; coordination is limited
// to bounding concurrency and aggregating exit codes.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Spec describes one launch: how many batches, how wide, and which command
// renders a single batch.
type Spec struct {
	// Command is the single-batch renderer executable.
	Command string
	// ModelPath is forwarded to every batch process.
	ModelPath string
	// OutputDir is the parent directory receiving one batchNN subdirectory
	// per batch.
	OutputDir string
	// NumBatches is the number of processes to run in total.
	NumBatches int
	// ImagesPerBatch is forwarded to every batch process.
	ImagesPerBatch int
	// Jobs bounds how many processes run simultaneously.
	Jobs int
	// Seed, when non-zero, gives batch i the seed Seed+i so runs are
	// reproducible while batches stay decorrelated.
	Seed int64
	// Log receives per-batch progress; nil stays silent.
	Log *zap.Logger
}

// Result is the outcome of one batch process.
type Result struct {
	Batch int
	Dir   string
	Err   error
}

// Run creates every batch directory up front, then dispatches the batch
// processes through a worker pool of at most spec.Jobs concurrent entries.
// All batches are attempted regardless of individual failures; the returned
// error summarises how many failed.
func Run(ctx context.Context, spec Spec) ([]Result, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("launcher: command is required")
	}
	if spec.NumBatches <= 0 {
		return nil, fmt.Errorf("launcher: num batches must be positive, got %d", spec.NumBatches)
	}
	if spec.Jobs <= 0 {
		return nil, fmt.Errorf("launcher: jobs must be positive, got %d", spec.Jobs)
	}
	log := spec.Log
	if log == nil {
		log = zap.NewNop()
	}

	results := make([]Result, spec.NumBatches)
	for i := range results {
		dir := filepath.Join(spec.OutputDir, fmt.Sprintf("batch%02d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("launcher: create %s: %w", dir, err)
		}
		results[i] = Result{Batch: i, Dir: dir}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(spec.Jobs)
	for i := range results {
		i := i
		g.Go(func() error {
			results[i].Err = runBatch(ctx, spec, results[i].Dir, i, log)
			// Failures are aggregated after Wait; returning them here would
			// cancel the remaining batches.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("launcher: wait: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("launcher: %d of %d batches failed", failed, spec.NumBatches)
	}
	return results, nil
}

func runBatch(ctx context.Context, spec Spec, dir string, index int, log *zap.Logger) error {
	args := []string{
		"--model_path", spec.ModelPath,
		"--num_images", strconv.Itoa(spec.ImagesPerBatch),
		"--output_dir", dir,
	}
	if spec.Seed != 0 {
		args = append(args, "--seed", strconv.FormatInt(spec.Seed+int64(index), 10))
	}

	log.Info("batch started", zap.Int("batch", index), zap.String("dir", dir))

	cmd := exec.CommandContext(ctx, spec.Command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Warn("batch failed", zap.Int("batch", index), zap.Error(err))
		return fmt.Errorf("launcher: batch %02d: %w", index, err)
	}

	log.Info("batch finished", zap.Int("batch", index))
	return nil
}
