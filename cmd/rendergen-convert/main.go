package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/goliatone/go-rendergen/pkg/convert"
	"github.com/goliatone/go-rendergen/pkg/converters/colmap"
	"github.com/goliatone/go-rendergen/pkg/converters/idr"
	"github.com/goliatone/go-rendergen/pkg/converters/npz"
	"github.com/goliatone/go-rendergen/pkg/converters/nsvf"
)

func main() {
	registry := convert.NewRegistry()
	registry.MustRegister(idr.New())
	registry.MustRegister(nsvf.New())
	registry.MustRegister(colmap.New())
	registry.MustRegister(npz.New())

	format := flag.String("format", "", "target dataset format: "+registry.Formats())
	inputDir := flag.String("input", "", "rendered batch directory (required)")
	outputDir := flag.String("output", "", "converted dataset directory (required)")
	flag.Parse()

	if *format == "" || *inputDir == "" || *outputDir == "" {
		fmt.Fprintln(os.Stderr, "error: --format, --input and --output are required")
		flag.Usage()
		os.Exit(1)
	}

	converter, err := registry.Get(*format)
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logger.Sync()

	report, err := converter.Convert(context.Background(), *inputDir, *outputDir, convert.Options{Log: logger})
	if err != nil {
		log.Fatalf("convert: %v", err)
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	fmt.Printf("%s: %d views converted, %d skipped\n", *format, report.Converted, report.Skipped)

	if report.Converted == 0 {
		fmt.Fprintf(os.Stderr, "error: %v\n", convert.ErrNoViews)
		os.Exit(1)
	}
}
