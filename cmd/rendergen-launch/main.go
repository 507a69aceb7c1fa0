package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/goliatone/go-rendergen/internal/launcher"
)

func main() {
	modelPath := flag.String("model_path", "", "path of the model to render (required)")
	numBatches := flag.Int("num_batches", 1, "number of independent batches")
	imagesPerBatch := flag.Int("num_images_per_batch", 1, "views rendered per batch")
	jobs := flag.Int("jobs", runtime.NumCPU()+2, "maximum simultaneous batch processes")
	outputDir := flag.String("output_dir", "batches", "parent directory for batchNN subdirectories")
	batchCmd := flag.String("batch_cmd", "rendergen-batch", "single-batch renderer executable")
	seed := flag.Int64("seed", 0, "base seed, batch i uses seed+i; 0 leaves seeding to the batches")
	flag.Parse()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "error: --model_path is required")
		flag.Usage()
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logger.Sync()

	results, err := launcher.Run(context.Background(), launcher.Spec{
		Command:        *batchCmd,
		ModelPath:      *modelPath,
		OutputDir:      *outputDir,
		NumBatches:     *numBatches,
		ImagesPerBatch: *imagesPerBatch,
		Jobs:           *jobs,
		Seed:           *seed,
		Log:            logger,
	})
	if err != nil {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "batch %02d: %v\n", r.Batch, r.Err)
			}
		}
		log.Fatalf("launch failed: %v", err)
	}

	fmt.Printf("%d batches completed under %s\n", len(results), *outputDir)
}
