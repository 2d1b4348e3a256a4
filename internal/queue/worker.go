package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tsawler/sentiment"
	"github.com/tsawler/sentiment/internal/store"
)

// Source yields jobs. Pop returns (nil, nil) when no job arrived in time.
type Source interface {
	Pop(ctx context.Context) (*Job, error)
}

// Analyzer produces a verdict for one text.
type Analyzer interface {
	Analyze(text string) (sentiment.PredictionResult, error)
	Info() sentiment.ModelInfo
}

// Sink receives analyzed jobs.
type Sink interface {
	SavePrediction(ctx context.Context, p store.Prediction) error
}

// LogSink writes predictions to a logger. It is used when no database is
// configured.
type LogSink struct {
	Logger *slog.Logger
}

// SavePrediction logs p.
func (s LogSink) SavePrediction(ctx context.Context, p store.Prediction) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "prediction",
		"job", p.JobID,
		"source", p.Source,
		"label", p.Label,
		"confidence", p.Confidence,
		"low_confidence", p.LowConfidence,
	)
	return nil
}

// Worker drains a Source through an Analyzer into a Sink.
type Worker struct {
	Source   Source
	Analyzer Analyzer
	Sink     Sink
	Logger   *slog.Logger

	// Backoff is the pause after a failed Pop or Save. Defaults to one second.
	Backoff time.Duration
}

// Run processes jobs until ctx is cancelled. Transient source and sink
// failures are logged and retried after Backoff.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.logger()
	backoff := w.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		job, err := w.Source.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("pop job", "error", err)
			if !sleep(ctx, backoff) {
				return nil
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := w.Process(ctx, *job); err != nil {
			logger.Error("save prediction", "job", job.ID, "error", err)
			if !sleep(ctx, backoff) {
				return nil
			}
		}
	}
}

// Process analyzes one job and hands the result to the sink. Jobs with
// unusable text are logged and dropped; only sink failures are returned.
func (w *Worker) Process(ctx context.Context, job Job) error {
	res, err := w.Analyzer.Analyze(job.Text)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, sentiment.ErrEmptyInput) {
			level = slog.LevelWarn
		}
		w.logger().Log(ctx, level, "skip job", "job", job.ID, "error", err)
		return nil
	}
	p := store.NewPrediction(job.ID, job.Source, job.URL, job.Text, res, w.Analyzer.Info().Generation)
	return w.Sink.SavePrediction(ctx, p)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
