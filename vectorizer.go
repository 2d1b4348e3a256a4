package sentiment

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// FeatureVector is a sparse TF-IDF vector. Indices are strictly ascending
// and every index is below Dim.
type FeatureVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// At returns the weight at index i.
func (v FeatureVector) At(i int) float64 {
	j := sort.SearchInts(v.Indices, i)
	if j < len(v.Indices) && v.Indices[j] == i {
		return v.Values[j]
	}
	return 0
}

// NNZ returns the number of stored entries.
func (v FeatureVector) NNZ() int {
	return len(v.Indices)
}

// VectorizerConfig controls vocabulary selection and weighting.
type VectorizerConfig struct {
	MaxFeatures int  // Vocabulary cap; <= 0 keeps every term.
	MinTokenLen int  // Shorter tokens (in runes) are ignored.
	Normalize   bool // Scale each vector to unit L2 norm.
}

// DefaultVectorizerConfig returns a configuration that keeps the 5000 most
// frequent terms of two or more characters and L2-normalizes vectors.
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		MaxFeatures: 5000,
		MinTokenLen: 2,
		Normalize:   true,
	}
}

// A Vectorizer turns cleaned text into TF-IDF feature vectors over a
// vocabulary learned by Fit. A fitted Vectorizer is never modified and is
// safe for concurrent use.
type Vectorizer struct {
	config VectorizerConfig
	vocab  map[string]int
	terms  []string
	idf    []float64
}

// NewVectorizer returns an unfitted Vectorizer.
func NewVectorizer(config VectorizerConfig) *Vectorizer {
	return &Vectorizer{config: config}
}

// Config returns the configuration the vectorizer was built with.
func (v *Vectorizer) Config() VectorizerConfig {
	return v.config
}

// Fitted reports whether Fit has completed.
func (v *Vectorizer) Fitted() bool {
	return v.vocab != nil
}

// Dim returns the vocabulary size.
func (v *Vectorizer) Dim() int {
	return len(v.terms)
}

// Vocabulary returns the retained terms in index order.
func (v *Vectorizer) Vocabulary() []string {
	return append([]string(nil), v.terms...)
}

// Index returns the feature index of term.
func (v *Vectorizer) Index(term string) (int, bool) {
	i, ok := v.vocab[term]
	return i, ok
}

// IDF returns the inverse document frequency of the term at index i.
func (v *Vectorizer) IDF(i int) float64 {
	return v.idf[i]
}

func (v *Vectorizer) tokens(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= v.config.MinTokenLen {
			out = append(out, f)
		}
	}
	return out
}

// Fit learns the vocabulary and IDF weights from a corpus of cleaned texts.
// Terms are ranked by total corpus frequency, ties broken lexicographically;
// retained terms are indexed in lexicographic order.
func (v *Vectorizer) Fit(corpus []string) error {
	tf := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range v.tokens(doc) {
			tf[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				df[tok]++
			}
		}
	}
	if len(tf) == 0 {
		return ErrEmptyCorpus
	}

	ranked := make([]string, 0, len(tf))
	for term := range tf {
		ranked = append(ranked, term)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if tf[a] != tf[b] {
			return tf[a] > tf[b]
		}
		return a < b
	})
	if limit := v.config.MaxFeatures; limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	sort.Strings(ranked)

	n := float64(len(corpus))
	vocab := make(map[string]int, len(ranked))
	idf := make([]float64, len(ranked))
	for i, term := range ranked {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	v.vocab, v.terms, v.idf = vocab, ranked, idf
	return nil
}

// Transform maps a cleaned text onto the fitted vocabulary. Unknown terms
// are ignored; text with no known terms yields an all-zero vector.
func (v *Vectorizer) Transform(text string) (FeatureVector, error) {
	if !v.Fitted() {
		return FeatureVector{}, fmt.Errorf("vectorizer transform: %w", ErrNotFitted)
	}

	counts := make(map[int]float64)
	for _, tok := range v.tokens(text) {
		if i, ok := v.vocab[tok]; ok {
			counts[i]++
		}
	}

	vec := FeatureVector{
		Dim:     len(v.terms),
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for i := range counts {
		vec.Indices = append(vec.Indices, i)
	}
	sort.Ints(vec.Indices)

	var norm float64
	for _, i := range vec.Indices {
		w := counts[i] * v.idf[i]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	if v.config.Normalize && norm > 0 {
		norm = math.Sqrt(norm)
		for j := range vec.Values {
			vec.Values[j] /= norm
		}
	}
	return vec, nil
}

// TransformBatch transforms each text exactly as Transform would.
func (v *Vectorizer) TransformBatch(texts []string) ([]FeatureVector, error) {
	out := make([]FeatureVector, len(texts))
	for i, t := range texts {
		vec, err := v.Transform(t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// FitTransform fits on corpus and returns its vectors.
func (v *Vectorizer) FitTransform(corpus []string) ([]FeatureVector, error) {
	if err := v.Fit(corpus); err != nil {
		return nil, err
	}
	return v.TransformBatch(corpus)
}

type vectorizerState struct {
	Config VectorizerConfig
	Terms  []string
	IDF    []float64
}

// MarshalBinary encodes the fitted vocabulary, IDF weights and configuration.
func (v *Vectorizer) MarshalBinary() ([]byte, error) {
	if !v.Fitted() {
		return nil, fmt.Errorf("encode vectorizer: %w", ErrNotFitted)
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(vectorizerState{
		Config: v.config,
		Terms:  v.terms,
		IDF:    v.idf,
	})
	if err != nil {
		return nil, fmt.Errorf("encode vectorizer: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a Vectorizer written by MarshalBinary.
func (v *Vectorizer) UnmarshalBinary(data []byte) error {
	var st vectorizerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode vectorizer: %w", err)
	}
	if len(st.Terms) == 0 || len(st.Terms) != len(st.IDF) {
		return fmt.Errorf("decode vectorizer: %d terms, %d weights", len(st.Terms), len(st.IDF))
	}
	vocab := make(map[string]int, len(st.Terms))
	for i, term := range st.Terms {
		if _, dup := vocab[term]; dup {
			return fmt.Errorf("decode vectorizer: duplicate term %q", term)
		}
		vocab[term] = i
	}
	v.config, v.vocab, v.terms, v.idf = st.Config, vocab, st.Terms, st.IDF
	return nil
}
