package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"
)

// TrainingConfig contains configuration for model training
type TrainingConfig struct {
	Language   Language
	Vectorizer VectorizerConfig
	Classifier ClassifierConfig

	// ProgressCallback is called after every optimizer iteration.
	ProgressCallback func(iteration int, loss float64)
	Logger           *slog.Logger
}

// DefaultTrainingConfig returns a default training configuration
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Language:   English,
		Vectorizer: DefaultVectorizerConfig(),
		Classifier: DefaultClassifierConfig(),
	}
}

// TrainingMetrics contains metrics from training
type TrainingMetrics struct {
	Records       int
	Features      int
	Labels        []string
	FinalLoss     float64
	TrainAccuracy float64
	Iterations    int
	TrainingTime  time.Duration
	Converged     bool
}

// ValidationResult contains validation metrics. Precision, Recall and
// F1Score are macro averages over PerLabel.
type ValidationResult struct {
	Count     int
	Accuracy  float64
	Loss      float64
	Precision float64
	Recall    float64
	F1Score   float64
	PerLabel  []LabelMetrics
	Confusion ConfusionMatrix
}

// LabelMetrics holds one-vs-rest metrics for a single label.
type LabelMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1Score   float64
	Support   int
}

// ConfusionMatrix counts predictions: Counts[i][j] is the number of records
// labeled Labels[i] that were predicted as Labels[j].
type ConfusionMatrix struct {
	Labels []string
	Counts [][]int
}

// CrossValidationResult contains results from cross-validation
type CrossValidationResult struct {
	MeanAccuracy float64
	StdAccuracy  float64
	MeanLoss     float64
	StdLoss      float64
	FoldResults  []ValidationResult
}

// Trainer fits normalizer, vectorizer and classifier as one unit.
type Trainer struct {
	config TrainingConfig
	logger *slog.Logger
}

// NewTrainer creates a new trainer with the given configuration
func NewTrainer(config TrainingConfig) *Trainer {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Language == "" {
		config.Language = English
	}
	return &Trainer{config: config, logger: logger}
}

// Train normalizes the record texts, fits the vectorizer on them and fits
// the classifier on the resulting vectors and record sentiments.
func (t *Trainer) Train(ctx context.Context, records []Record) (*Model, TrainingMetrics, error) {
	start := time.Now()
	if len(records) == 0 {
		return nil, TrainingMetrics{}, fmt.Errorf("train: %w", ErrEmptyCorpus)
	}

	normalizer, err := NewNormalizer(t.config.Language)
	if err != nil {
		return nil, TrainingMetrics{}, fmt.Errorf("train: %w", err)
	}
	cleaned := normalizer.NormalizeAll(Texts(records))
	labels := Sentiments(records)

	vectorizer := NewVectorizer(t.config.Vectorizer)
	vectors, err := vectorizer.FitTransform(cleaned)
	if err != nil {
		return nil, TrainingMetrics{}, fmt.Errorf("train vectorizer: %w", err)
	}
	t.logger.Info("vocabulary built",
		"records", len(records),
		"features", vectorizer.Dim(),
	)

	ccfg := t.config.Classifier
	ccfg.Logger = t.logger
	if ccfg.Progress == nil {
		ccfg.Progress = t.config.ProgressCallback
	}
	classifier := NewClassifier(ccfg)
	if err := classifier.Fit(ctx, vectors, labels); err != nil {
		return nil, TrainingMetrics{}, fmt.Errorf("train classifier: %w", err)
	}

	correct := 0
	for i, v := range vectors {
		pred, err := classifier.Predict(v)
		if err != nil {
			return nil, TrainingMetrics{}, err
		}
		if pred == labels[i] {
			correct++
		}
	}

	model := newModel(normalizer, vectorizer, classifier)
	metrics := TrainingMetrics{
		Records:       len(records),
		Features:      vectorizer.Dim(),
		Labels:        classifier.Labels(),
		FinalLoss:     classifier.Loss(),
		TrainAccuracy: float64(correct) / float64(len(records)),
		Iterations:    classifier.Iterations(),
		TrainingTime:  time.Since(start),
		Converged:     classifier.Converged(),
	}
	if !metrics.Converged {
		t.logger.Warn("classifier did not converge", "iterations", metrics.Iterations)
	}
	return model, metrics, nil
}

// Evaluate scores model against labeled records. A record counts as correct
// when the classifier's most probable label equals its sentiment exactly;
// the neutral override plays no part here.
func Evaluate(model *Model, records []Record) (ValidationResult, error) {
	if len(records) == 0 {
		return ValidationResult{}, nil
	}

	labelSet := make(map[string]struct{})
	for _, l := range model.Labels() {
		labelSet[l] = struct{}{}
	}
	for _, r := range records {
		labelSet[r.Sentiment] = struct{}{}
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}

	var correct, scored int
	var loss float64
	for _, r := range records {
		scores, err := model.Scores(r.Text)
		if err != nil {
			return ValidationResult{}, fmt.Errorf("evaluate record %s: %w", r.ID, err)
		}
		pred := argmax(scores)
		counts[index[r.Sentiment]][index[pred.Label]]++
		if pred.Label == r.Sentiment {
			correct++
		}
		for _, s := range scores {
			if s.Label == r.Sentiment {
				loss -= math.Log(math.Max(s.Probability, 1e-15))
				scored++
				break
			}
		}
	}

	res := ValidationResult{
		Count:     len(records),
		Accuracy:  float64(correct) / float64(len(records)),
		Confusion: ConfusionMatrix{Labels: labels, Counts: counts},
	}
	if scored > 0 {
		res.Loss = loss / float64(scored)
	}

	for i, l := range labels {
		var tp, predicted, actual int
		for j := range labels {
			predicted += counts[j][i]
			actual += counts[i][j]
		}
		tp = counts[i][i]
		m := LabelMetrics{Label: l, Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		res.PerLabel = append(res.PerLabel, m)
		res.Precision += m.Precision
		res.Recall += m.Recall
		res.F1Score += m.F1Score
	}
	n := float64(len(labels))
	res.Precision /= n
	res.Recall /= n
	res.F1Score /= n
	return res, nil
}

// CrossValidate performs k-fold cross-validation over records in their
// given order. The last fold takes any remainder.
func (t *Trainer) CrossValidate(ctx context.Context, records []Record, k int) (CrossValidationResult, error) {
	if k <= 1 {
		return CrossValidationResult{}, fmt.Errorf("k must be greater than 1")
	}
	if len(records) < k {
		return CrossValidationResult{}, fmt.Errorf("%d records cannot fill %d folds", len(records), k)
	}

	foldSize := len(records) / k
	results := make([]ValidationResult, k)

	for fold := 0; fold < k; fold++ {
		start := fold * foldSize
		end := start + foldSize
		if fold == k-1 {
			end = len(records)
		}

		testData := records[start:end]
		trainData := make([]Record, 0, len(records)-len(testData))
		trainData = append(trainData, records[:start]...)
		trainData = append(trainData, records[end:]...)

		model, _, err := t.Train(ctx, trainData)
		if err != nil {
			return CrossValidationResult{}, fmt.Errorf("fold %d: %w", fold, err)
		}
		results[fold], err = Evaluate(model, testData)
		if err != nil {
			return CrossValidationResult{}, fmt.Errorf("fold %d: %w", fold, err)
		}
		t.logger.Debug("fold evaluated", "fold", fold, "accuracy", results[fold].Accuracy)
	}

	var meanAcc, meanLoss float64
	for _, result := range results {
		meanAcc += result.Accuracy
		meanLoss += result.Loss
	}
	meanAcc /= float64(k)
	meanLoss /= float64(k)

	var varAcc, varLoss float64
	for _, result := range results {
		varAcc += math.Pow(result.Accuracy-meanAcc, 2)
		varLoss += math.Pow(result.Loss-meanLoss, 2)
	}

	return CrossValidationResult{
		MeanAccuracy: meanAcc,
		StdAccuracy:  math.Sqrt(varAcc / float64(k)),
		MeanLoss:     meanLoss,
		StdLoss:      math.Sqrt(varLoss / float64(k)),
		FoldResults:  results,
	}, nil
}
