package sentiment

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// ClassifierConfig controls multinomial logistic regression training.
type ClassifierConfig struct {
	C         float64 // Inverse L2 regularization strength.
	MaxIter   int     // Upper bound on optimizer iterations.
	Tolerance float64 // Gradient norm at which training stops.

	Logger   *slog.Logger
	Progress func(iteration int, loss float64)
}

// DefaultClassifierConfig returns C=1, at most 1000 iterations and a
// gradient tolerance of 1e-4.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		C:         1.0,
		MaxIter:   1000,
		Tolerance: 1e-4,
	}
}

// A Classifier is a multinomial (softmax) logistic regression over sparse
// feature vectors. After Fit it is read-only and safe for concurrent use.
type Classifier struct {
	config ClassifierConfig

	labels  []string   // Sorted; defines the order of every score slice.
	dim     int
	weights *mat.Dense // len(labels) x dim
	bias    []float64

	converged  bool
	iterations int
	loss       float64
}

// NewClassifier returns an unfitted Classifier.
func NewClassifier(config ClassifierConfig) *Classifier {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Classifier{config: config}
}

// Labels returns the class labels in score order.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Dim returns the feature dimensionality seen at fit time.
func (c *Classifier) Dim() int {
	return c.dim
}

// Fitted reports whether the classifier holds learned weights.
func (c *Classifier) Fitted() bool {
	return c.weights != nil
}

// Converged reports whether the optimizer stopped before MaxIter.
func (c *Classifier) Converged() bool {
	return c.converged
}

// Iterations returns the number of optimizer iterations run by Fit.
func (c *Classifier) Iterations() int {
	return c.iterations
}

// Loss returns the final value of the training objective.
func (c *Classifier) Loss() float64 {
	return c.loss
}

// Fit learns one weight row and intercept per class by minimizing the
// mean cross-entropy plus ||W||^2/(2*C*n) with L-BFGS. Training always
// terminates; hitting MaxIter is reported by Converged, not as an error.
func (c *Classifier) Fit(ctx context.Context, vectors []FeatureVector, labels []string) error {
	if len(vectors) != len(labels) {
		return fmt.Errorf("classifier fit: %d vectors, %d labels", len(vectors), len(labels))
	}
	classes := uniqueSorted(labels)
	if len(classes) < 2 {
		return fmt.Errorf("classifier fit: %w", ErrSingleClass)
	}
	dim := vectors[0].Dim
	if dim <= 0 {
		return fmt.Errorf("classifier fit: %w: empty feature space", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if err := checkVector(v, dim); err != nil {
			return fmt.Errorf("classifier fit: vector %d: %w", i, err)
		}
	}

	classIndex := make(map[string]int, len(classes))
	for i, l := range classes {
		classIndex[l] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIndex[l]
	}

	obj := &softmaxObjective{
		x:      vectors,
		y:      y,
		k:      len(classes),
		d:      dim,
		lambda: 1 / (c.config.C * float64(len(vectors))),
	}

	rec := &progressRecorder{ctx: ctx, progress: c.config.Progress}
	settings := &optimize.Settings{
		MajorIterations:   c.config.MaxIter,
		GradientThreshold: c.config.Tolerance,
		Recorder:          rec,
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 { return obj.eval(x, nil) },
		Grad: func(grad, x []float64) { obj.eval(x, grad) },
	}

	x0 := make([]float64, obj.k*(obj.d+1))
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("classifier fit: %w", ctxErr)
	}
	if result == nil || len(result.X) != len(x0) {
		return fmt.Errorf("classifier fit: optimizer: %w", err)
	}
	if err != nil {
		// Line search failures still leave the best location found.
		c.config.Logger.Warn("optimizer stopped early", "error", err, "iterations", result.MajorIterations)
	}

	params := mat.NewDense(obj.k, obj.d+1, result.X)
	weights := mat.NewDense(obj.k, obj.d, nil)
	bias := make([]float64, obj.k)
	for k := 0; k < obj.k; k++ {
		row := params.RawRowView(k)
		weights.SetRow(k, row[:obj.d])
		bias[k] = row[obj.d]
	}

	c.labels = classes
	c.dim = dim
	c.weights = weights
	c.bias = bias
	c.iterations = result.MajorIterations
	c.loss = result.F
	c.converged = err == nil && result.Status != optimize.IterationLimit

	c.config.Logger.Debug("classifier fitted",
		"classes", len(classes),
		"features", dim,
		"iterations", c.iterations,
		"loss", c.loss,
		"converged", c.converged,
	)
	return nil
}

// PredictProba returns the class distribution for v in label order.
// Probabilities are non-negative and sum to one.
func (c *Classifier) PredictProba(v FeatureVector) ([]LabelScore, error) {
	if !c.Fitted() {
		return nil, fmt.Errorf("classifier predict: %w", ErrNotFitted)
	}
	if err := checkVector(v, c.dim); err != nil {
		return nil, fmt.Errorf("classifier predict: %w", err)
	}

	z := make([]float64, len(c.labels))
	for k := range z {
		z[k] = c.bias[k] + sparseDot(c.weights.RawRowView(k), v)
	}
	softmax(z)

	scores := make([]LabelScore, len(z))
	for k, p := range z {
		scores[k] = LabelScore{Label: c.labels[k], Probability: p}
	}
	return scores, nil
}

// Predict returns the most probable label. Ties go to the label that sorts
// first.
func (c *Classifier) Predict(v FeatureVector) (string, error) {
	scores, err := c.PredictProba(v)
	if err != nil {
		return "", err
	}
	return argmax(scores).Label, nil
}

func argmax(scores []LabelScore) LabelScore {
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Probability > best.Probability {
			best = s
		}
	}
	return best
}

func checkVector(v FeatureVector, dim int) error {
	if v.Dim != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, v.Dim, dim)
	}
	if len(v.Indices) != len(v.Values) {
		return fmt.Errorf("%w: %d indices, %d values", ErrDimensionMismatch, len(v.Indices), len(v.Values))
	}
	for _, i := range v.Indices {
		if i < 0 || i >= dim {
			return fmt.Errorf("%w: index %d out of range [0,%d)", ErrDimensionMismatch, i, dim)
		}
	}
	return nil
}

func sparseDot(row []float64, v FeatureVector) float64 {
	var s float64
	for j, i := range v.Indices {
		s += row[i] * v.Values[j]
	}
	return s
}

// softmax replaces z with exp(z - logsumexp(z)), renormalized to sum to one.
func softmax(z []float64) {
	lse := floats.LogSumExp(z)
	for k := range z {
		z[k] = math.Exp(z[k] - lse)
	}
	floats.Scale(1/floats.Sum(z), z)
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

// softmaxObjective is the regularized multinomial cross-entropy over a
// parameter vector laid out as k rows of d weights followed by an intercept.
type softmaxObjective struct {
	x      []FeatureVector
	y      []int
	k, d   int
	lambda float64
}

// eval returns the objective at params and, when grad is non-nil, writes the
// gradient into it.
func (o *softmaxObjective) eval(params, grad []float64) float64 {
	w := mat.NewDense(o.k, o.d+1, params)
	var g *mat.Dense
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
		g = mat.NewDense(o.k, o.d+1, grad)
	}

	n := float64(len(o.x))
	z := make([]float64, o.k)
	var loss float64
	for i, v := range o.x {
		for k := 0; k < o.k; k++ {
			row := w.RawRowView(k)
			z[k] = row[o.d] + sparseDot(row, v)
		}
		lse := floats.LogSumExp(z)
		loss += lse - z[o.y[i]]
		if g == nil {
			continue
		}
		for k := 0; k < o.k; k++ {
			coef := math.Exp(z[k] - lse)
			if k == o.y[i] {
				coef--
			}
			coef /= n
			grow := g.RawRowView(k)
			for j, idx := range v.Indices {
				grow[idx] += coef * v.Values[j]
			}
			grow[o.d] += coef
		}
	}
	loss /= n

	var penalty float64
	for k := 0; k < o.k; k++ {
		row := w.RawRowView(k)[:o.d]
		penalty += floats.Dot(row, row)
		if g != nil {
			floats.AddScaled(g.RawRowView(k)[:o.d], o.lambda, row)
		}
	}
	return loss + 0.5*o.lambda*penalty
}

// progressRecorder stops the optimizer when ctx is cancelled and reports
// each major iteration.
type progressRecorder struct {
	ctx      context.Context
	progress func(iteration int, loss float64)
}

func (r *progressRecorder) Init() error {
	return r.ctx.Err()
}

func (r *progressRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.progress != nil && op&optimize.MajorIteration != 0 {
		r.progress(stats.MajorIterations, loc.F)
	}
	return nil
}

type classifierState struct {
	C          float64
	MaxIter    int
	Tolerance  float64
	Labels     []string
	Dim        int
	Weights    []byte
	Bias       []float64
	Converged  bool
	Iterations int
	Loss       float64
}

// MarshalBinary encodes the learned weights and label order.
func (c *Classifier) MarshalBinary() ([]byte, error) {
	if !c.Fitted() {
		return nil, fmt.Errorf("encode classifier: %w", ErrNotFitted)
	}
	weights, err := c.weights.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode classifier weights: %w", err)
	}
	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(classifierState{
		C:          c.config.C,
		MaxIter:    c.config.MaxIter,
		Tolerance:  c.config.Tolerance,
		Labels:     c.labels,
		Dim:        c.dim,
		Weights:    weights,
		Bias:       c.bias,
		Converged:  c.converged,
		Iterations: c.iterations,
		Loss:       c.loss,
	})
	if err != nil {
		return nil, fmt.Errorf("encode classifier: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a Classifier written by MarshalBinary.
func (c *Classifier) UnmarshalBinary(data []byte) error {
	var st classifierState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode classifier: %w", err)
	}
	var weights mat.Dense
	if err := weights.UnmarshalBinary(st.Weights); err != nil {
		return fmt.Errorf("decode classifier weights: %w", err)
	}
	r, cols := weights.Dims()
	if len(st.Labels) < 2 || r != len(st.Labels) || cols != st.Dim || len(st.Bias) != r {
		return fmt.Errorf("decode classifier: weights %dx%d for %d labels, dim %d", r, cols, len(st.Labels), st.Dim)
	}
	if !sort.StringsAreSorted(st.Labels) {
		return fmt.Errorf("decode classifier: labels out of order")
	}

	if c.config.Logger == nil {
		c.config.Logger = slog.Default()
	}
	c.config.C, c.config.MaxIter, c.config.Tolerance = st.C, st.MaxIter, st.Tolerance
	c.labels = st.Labels
	c.dim = st.Dim
	c.weights = &weights
	c.bias = st.Bias
	c.converged = st.Converged
	c.iterations = st.Iterations
	c.loss = st.Loss
	return nil
}
