// Command train fits a sentiment model from the configured CSV files and
// writes it as the next bundle generation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tsawler/sentiment"
	"github.com/tsawler/sentiment/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	trainPath := flag.String("train", "", "training CSV (overrides config)")
	validationPath := flag.String("validation", "", "validation CSV (overrides config)")
	modelDir := flag.String("model-dir", "", "model directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *trainPath != "" {
		cfg.Data.TrainPath = *trainPath
	}
	if *validationPath != "" {
		cfg.Data.ValidationPath = *validationPath
	}
	if *modelDir != "" {
		cfg.Model.Dir = *modelDir
	}

	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := sentiment.RunPipeline(ctx, cfg.PipelineConfig(logger))
	if err != nil {
		var dle *sentiment.DataLoadError
		if errors.As(err, &dle) {
			logger.Error("training data unreadable", "path", dle.Path, "line", dle.Line, "error", dle.Err)
		} else {
			logger.Error("training failed", "error", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Model Accuracy: %.4f\n", report.Validation.Accuracy)
	fmt.Printf("Macro F1: %.4f\n", report.Validation.F1Score)
	fmt.Printf("Bundle: %s (generation %d, %d features)\n",
		report.BundleDir, report.Manifest.Generation, report.Manifest.Features)
}
