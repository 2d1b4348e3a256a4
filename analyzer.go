package sentiment

import (
	"fmt"
	"log/slog"
	"strings"
)

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	// Threshold is the neutral-override confidence. Zero selects
	// DefaultThreshold.
	Threshold float64
	Logger    *slog.Logger
}

// DefaultAnalyzerConfig returns standard configuration
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{Threshold: DefaultThreshold}
}

// An Analyzer serves verdicts from one loaded Model. It holds no mutable
// state, so a single Analyzer can be shared by any number of goroutines.
type Analyzer struct {
	model     *Model
	rule      DecisionRule
	segmenter *Segmenter
	logger    *slog.Logger
}

// BatchResult is the outcome for one text of AnalyzeBatch.
type BatchResult struct {
	Result PredictionResult
	Err    error
}

// NewAnalyzer wraps a trained or loaded model.
func NewAnalyzer(model *Model, config AnalyzerConfig) (*Analyzer, error) {
	if model == nil {
		return nil, fmt.Errorf("new analyzer: %w", ErrAssetMissing)
	}
	if config.Threshold == 0 {
		config.Threshold = DefaultThreshold
	}
	if config.Threshold < 0 || config.Threshold > 1 {
		return nil, fmt.Errorf("new analyzer: threshold %v outside [0,1]", config.Threshold)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	segmenter, err := NewSegmenter()
	if err != nil {
		return nil, fmt.Errorf("new analyzer: %w", err)
	}
	return &Analyzer{
		model:     model,
		rule:      DecisionRule{Threshold: config.Threshold},
		segmenter: segmenter,
		logger:    config.Logger,
	}, nil
}

// LoadAnalyzer loads the current bundle under dir. Any missing, corrupt or
// mismatched asset is returned as an error; there is no fallback model.
func LoadAnalyzer(dir string, config AnalyzerConfig) (*Analyzer, error) {
	model, err := ModelFromDisk(dir)
	if err != nil {
		return nil, fmt.Errorf("load analyzer from %s: %w", dir, err)
	}
	a, err := NewAnalyzer(model, config)
	if err != nil {
		return nil, err
	}
	man := model.Manifest()
	a.logger.Info("model loaded",
		"dir", dir,
		"generation", man.Generation,
		"features", man.Features,
		"labels", man.Labels,
	)
	return a, nil
}

// Model returns the underlying model.
func (a *Analyzer) Model() *Model {
	return a.model
}

// Threshold returns the neutral-override confidence in use.
func (a *Analyzer) Threshold() float64 {
	return a.rule.Threshold
}

// Analyze classifies text. Whitespace-only text returns ErrEmptyInput.
func (a *Analyzer) Analyze(text string) (PredictionResult, error) {
	if strings.TrimSpace(text) == "" {
		return PredictionResult{}, ErrEmptyInput
	}
	scores, err := a.model.Scores(text)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("analyze: %w", err)
	}
	return a.rule.Decide(scores), nil
}

// AnalyzeBatch classifies each text independently. A failure for one text
// does not affect the others.
func (a *Analyzer) AnalyzeBatch(texts []string) []BatchResult {
	out := make([]BatchResult, len(texts))
	for i, t := range texts {
		out[i].Result, out[i].Err = a.Analyze(t)
	}
	return out
}

// AnalyzeSentences splits text into sentences and classifies each one.
func (a *Analyzer) AnalyzeSentences(text string) ([]SentenceResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	sents, err := a.segmenter.Segment(text)
	if err != nil {
		return nil, err
	}
	out := make([]SentenceResult, 0, len(sents))
	for _, s := range sents {
		res, err := a.Analyze(s.Text)
		if err != nil {
			return nil, err
		}
		out = append(out, SentenceResult{
			Text:             s.Text,
			Start:            s.Start,
			End:              s.End,
			PredictionResult: res,
		})
	}
	return out, nil
}

// Info summarizes the loaded model.
func (a *Analyzer) Info() ModelInfo {
	man := a.model.Manifest()
	return ModelInfo{
		Generation:         man.Generation,
		CreatedAt:          man.CreatedAt,
		Language:           man.Language,
		Normalizer:         man.Normalizer,
		Features:           man.Features,
		Labels:             man.Labels,
		ValidationAccuracy: man.ValidationAccuracy,
		Threshold:          a.rule.Threshold,
	}
}
