package sentiment

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestVectorizerFit(t *testing.T) {
	corpus := []string{"love phone", "hate phone", "love love game"}
	v := NewVectorizer(DefaultVectorizerConfig())
	if err := v.Fit(corpus); err != nil {
		t.Fatal(err)
	}

	want := []string{"game", "hate", "love", "phone"}
	if got := v.Vocabulary(); !reflect.DeepEqual(got, want) {
		t.Errorf("Vocabulary = %v, want %v", got, want)
	}
	if v.Dim() != len(want) {
		t.Errorf("Dim = %d, want %d", v.Dim(), len(want))
	}

	i, ok := v.Index("love")
	if !ok {
		t.Fatal("love missing from vocabulary")
	}
	wantIDF := math.Log(4.0/3.0) + 1
	if math.Abs(v.IDF(i)-wantIDF) > 1e-12 {
		t.Errorf("IDF(love) = %v, want %v", v.IDF(i), wantIDF)
	}
}

func TestVectorizerMaxFeatures(t *testing.T) {
	tests := []struct {
		corpus   []string
		max      int
		expected []string
		desc     string
	}{
		{[]string{"bb aa", "cc aa"}, 2, []string{"aa", "bb"}, "Frequency then lexicographic tie-break"},
		{[]string{"zz zz yy", "xx"}, 1, []string{"zz"}, "Most frequent term"},
		{[]string{"bb aa", "cc aa"}, 0, []string{"aa", "bb", "cc"}, "No cap"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := DefaultVectorizerConfig()
			cfg.MaxFeatures = tt.max
			v := NewVectorizer(cfg)
			if err := v.Fit(tt.corpus); err != nil {
				t.Fatal(err)
			}
			if got := v.Vocabulary(); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Vocabulary = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestVectorizerSingleTerm(t *testing.T) {
	v := NewVectorizer(DefaultVectorizerConfig())
	if err := v.Fit([]string{"love phone", "hate phone", "love game"}); err != nil {
		t.Fatal(err)
	}

	for _, term := range v.Vocabulary() {
		vec, err := v.Transform(term)
		if err != nil {
			t.Fatal(err)
		}
		idx, _ := v.Index(term)
		if vec.At(idx) <= 0 {
			t.Errorf("%s: weight at %d = %v, want > 0", term, idx, vec.At(idx))
		}
		for i := 0; i < vec.Dim; i++ {
			if i != idx && vec.At(i) != 0 {
				t.Errorf("%s: weight at %d = %v, want 0", term, i, vec.At(i))
			}
		}
	}
}

func TestVectorizerTransform(t *testing.T) {
	v := NewVectorizer(DefaultVectorizerConfig())
	if err := v.Fit([]string{"love phone", "hate phone", "love game"}); err != nil {
		t.Fatal(err)
	}

	t.Run("Empty text", func(t *testing.T) {
		vec, err := v.Transform("")
		if err != nil {
			t.Fatal(err)
		}
		if vec.NNZ() != 0 || vec.Dim != v.Dim() {
			t.Errorf("Transform(\"\") = %+v, want all-zero vector of dim %d", vec, v.Dim())
		}
	})

	t.Run("Unknown terms ignored", func(t *testing.T) {
		vec, err := v.Transform("unknown words love")
		if err != nil {
			t.Fatal(err)
		}
		if vec.NNZ() != 1 {
			t.Errorf("NNZ = %d, want 1", vec.NNZ())
		}
	})

	t.Run("Unit norm", func(t *testing.T) {
		vec, err := v.Transform("love love phone game")
		if err != nil {
			t.Fatal(err)
		}
		var norm float64
		for _, x := range vec.Values {
			norm += x * x
		}
		if math.Abs(norm-1) > 1e-12 {
			t.Errorf("squared norm = %v, want 1", norm)
		}
		for i := 1; i < len(vec.Indices); i++ {
			if vec.Indices[i] <= vec.Indices[i-1] {
				t.Errorf("indices not ascending: %v", vec.Indices)
			}
		}
	})

	t.Run("Batch of one", func(t *testing.T) {
		texts := []string{"love phone", "hate game", ""}
		batch, err := v.TransformBatch(texts)
		if err != nil {
			t.Fatal(err)
		}
		for i, text := range texts {
			single, err := v.TransformBatch([]string{text})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(single[0], batch[i]) {
				t.Errorf("Text: %q\nBatch: %+v\nSingle: %+v", text, batch[i], single[0])
			}
		}
	})
}

func TestVectorizerMinTokenLen(t *testing.T) {
	v := NewVectorizer(DefaultVectorizerConfig())
	if err := v.Fit([]string{"a love b"}); err != nil {
		t.Fatal(err)
	}
	if got := v.Vocabulary(); !reflect.DeepEqual(got, []string{"love"}) {
		t.Errorf("Vocabulary = %v, want [love]", got)
	}
}

func TestVectorizerErrors(t *testing.T) {
	tests := []struct {
		corpus []string
		desc   string
	}{
		{nil, "Nil corpus"},
		{[]string{}, "Empty corpus"},
		{[]string{"", "   "}, "Blank documents"},
		{[]string{"a b c"}, "Only short tokens"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := NewVectorizer(DefaultVectorizerConfig()).Fit(tt.corpus)
			if !errors.Is(err, ErrEmptyCorpus) {
				t.Errorf("Fit(%q) = %v, want ErrEmptyCorpus", tt.corpus, err)
			}
		})
	}

	_, err := NewVectorizer(DefaultVectorizerConfig()).Transform("love")
	if !errors.Is(err, ErrNotFitted) {
		t.Errorf("Transform before Fit = %v, want ErrNotFitted", err)
	}
}

func TestVectorizerDeterministic(t *testing.T) {
	corpus := make([]string, 0, len(fixtureRecords()))
	for _, r := range fixtureRecords() {
		corpus = append(corpus, Normalize(r.Text))
	}

	a := NewVectorizer(DefaultVectorizerConfig())
	b := NewVectorizer(DefaultVectorizerConfig())
	va, err := a.FitTransform(corpus)
	if err != nil {
		t.Fatal(err)
	}
	vb, err := b.FitTransform(corpus)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Vocabulary(), b.Vocabulary()) {
		t.Error("vocabularies differ between identical fits")
	}
	if !reflect.DeepEqual(va, vb) {
		t.Error("vectors differ between identical fits")
	}
}

func TestVectorizerBinary(t *testing.T) {
	v := NewVectorizer(DefaultVectorizerConfig())
	if err := v.Fit([]string{"love phone", "hate phone", "love game"}); err != nil {
		t.Fatal(err)
	}
	data, err := v.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var restored Vectorizer
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if restored.Config() != v.Config() {
		t.Errorf("Config = %+v, want %+v", restored.Config(), v.Config())
	}
	want, _ := v.Transform("love game phone")
	got, err := restored.Transform("love game phone")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("restored Transform = %+v, want %+v", got, want)
	}

	if err := restored.UnmarshalBinary([]byte("garbage")); err == nil {
		t.Error("expected error decoding garbage")
	}
	if _, err := NewVectorizer(DefaultVectorizerConfig()).MarshalBinary(); !errors.Is(err, ErrNotFitted) {
		t.Errorf("MarshalBinary before Fit = %v, want ErrNotFitted", err)
	}
}

func BenchmarkVectorizerTransform(b *testing.B) {
	v := NewVectorizer(DefaultVectorizerConfig())
	if err := v.Fit([]string{"love phone", "hate phone", "love game", "great camera awful battery"}); err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		v.Transform("love camera battery phone unknown")
	}
}
