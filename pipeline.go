package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// PipelineConfig names the inputs and output of a training run.
type PipelineConfig struct {
	TrainPath      string
	ValidationPath string
	ModelDir       string
	KeepBundles    int

	Training TrainingConfig
	Logger   *slog.Logger
}

// PipelineReport summarizes a completed training run.
type PipelineReport struct {
	Manifest   Manifest
	BundleDir  string
	Training   TrainingMetrics
	Validation ValidationResult
}

// RunPipeline loads the training and validation files, trains a model,
// evaluates it on the validation records and persists it as the next bundle
// generation. The bundle is written whatever the accuracy.
func RunPipeline(ctx context.Context, cfg PipelineConfig) (*PipelineReport, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	train, err := LoadRecords(cfg.TrainPath)
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}
	validation, err := LoadRecords(cfg.ValidationPath)
	if err != nil {
		return nil, fmt.Errorf("load validation data: %w", err)
	}
	logger.Info("datasets loaded",
		"train", len(train),
		"validation", len(validation),
	)

	tcfg := cfg.Training
	if tcfg.Logger == nil {
		tcfg.Logger = logger
	}
	if tcfg.ProgressCallback == nil {
		tcfg.ProgressCallback = func(iter int, loss float64) {
			if iter%50 == 0 {
				logger.Debug("training progress", "iteration", iter, "loss", loss)
			}
		}
	}

	model, metrics, err := NewTrainer(tcfg).Train(ctx, train)
	if err != nil {
		return nil, err
	}

	result, err := Evaluate(model, validation)
	if err != nil {
		return nil, err
	}
	logger.Info("model accuracy",
		"accuracy", result.Accuracy,
		"macro_f1", result.F1Score,
		"train_accuracy", metrics.TrainAccuracy,
		"iterations", metrics.Iterations,
		"converged", metrics.Converged,
		"duration", metrics.TrainingTime,
	)

	keep := cfg.KeepBundles
	if keep == 0 {
		keep = DefaultKeepBundles
	}
	man, err := model.Write(cfg.ModelDir,
		WithValidationAccuracy(result.Accuracy),
		WithKeepBundles(keep),
		WithWriteLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("persist model: %w", err)
	}

	return &PipelineReport{
		Manifest:   man,
		BundleDir:  filepath.Join(cfg.ModelDir, BundlesDir, bundleName(man.Generation)),
		Training:   metrics,
		Validation: result,
	}, nil
}
