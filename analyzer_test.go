package sentiment

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func newTestAnalyzer(t testing.TB) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(trainFixture(t), DefaultAnalyzerConfig())
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAnalyze(t *testing.T) {
	a := newTestAnalyzer(t)

	tests := []struct {
		text     string
		expected string
		desc     string
	}{
		{"I love this phone!", LabelPositive, "Positive tweet"},
		{"I really hate this game", LabelNegative, "Negative tweet"},
		{"phone", LabelNeutral, "Term seen equally in both classes"},
		{"zebra quantum", LabelNeutral, "Only unknown words"},
		{"the and is 42!", LabelNeutral, "Normalizes to nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			res, err := a.Analyze(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if res.Label != tt.expected {
				t.Errorf("Text: %q\nExpected: %s\nGot: %s (%.3f)", tt.text, tt.expected, res.Label, res.Confidence)
			}
			if res.Label == LabelNeutral && !res.LowConfidence {
				t.Errorf("Text: %q\nNeutral verdict without LowConfidence", tt.text)
			}
			if len(res.Scores) != 2 {
				t.Errorf("Scores = %v, want 2 entries", res.Scores)
			}
		})
	}

	res, _ := a.Analyze("I love this phone!")
	if res.Confidence < 0.6 {
		t.Errorf("confidence for positive tweet = %.3f, want >= 0.6", res.Confidence)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := newTestAnalyzer(t)
	for _, text := range []string{"", " ", "\t\n  "} {
		if _, err := a.Analyze(text); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Analyze(%q) = %v, want ErrEmptyInput", text, err)
		}
		if _, err := a.AnalyzeSentences(text); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("AnalyzeSentences(%q) = %v, want ErrEmptyInput", text, err)
		}
	}
}

func TestAnalyzeBatch(t *testing.T) {
	a := newTestAnalyzer(t)
	results := a.AnalyzeBatch([]string{"I love this phone!", "", "hate it"})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Result.Label != LabelPositive {
		t.Errorf("result 0 = %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrEmptyInput) {
		t.Errorf("result 1 error = %v, want ErrEmptyInput", results[1].Err)
	}
	if results[2].Err != nil || results[2].Result.Label != LabelNegative {
		t.Errorf("result 2 = %+v", results[2])
	}
}

func TestAnalyzeSentences(t *testing.T) {
	a := newTestAnalyzer(t)
	text := "I love this phone. I hate this game."

	sents, err := a.AnalyzeSentences(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(sents) != 2 {
		t.Fatalf("got %d sentences, want 2: %+v", len(sents), sents)
	}
	if sents[0].Label != LabelPositive || sents[1].Label != LabelNegative {
		t.Errorf("labels = %s, %s; want Positive, Negative", sents[0].Label, sents[1].Label)
	}
	for _, s := range sents {
		if text[s.Start:s.End] != s.Text {
			t.Errorf("offsets [%d:%d] = %q, want %q", s.Start, s.End, text[s.Start:s.End], s.Text)
		}
	}
}

func TestAnalyzeConcurrent(t *testing.T) {
	a := newTestAnalyzer(t)
	texts := []string{"I love this phone!", "hate it", "phone", "awesome update"}

	want := make([]PredictionResult, len(texts))
	for i, text := range texts {
		res, err := a.Analyze(text)
		if err != nil {
			t.Fatal(err)
		}
		want[i] = res
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				idx := (g + i) % len(texts)
				res, err := a.Analyze(texts[idx])
				if err != nil {
					errs <- err
					return
				}
				if !reflect.DeepEqual(res, want[idx]) {
					errs <- errors.New("result changed under concurrency: " + texts[idx])
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNewAnalyzer(t *testing.T) {
	if _, err := NewAnalyzer(nil, DefaultAnalyzerConfig()); !errors.Is(err, ErrAssetMissing) {
		t.Errorf("nil model: got %v, want ErrAssetMissing", err)
	}

	model := trainFixture(t)
	if _, err := NewAnalyzer(model, AnalyzerConfig{Threshold: 1.5}); err == nil {
		t.Error("expected error for threshold above 1")
	}

	a, err := NewAnalyzer(model, AnalyzerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Threshold() != DefaultThreshold {
		t.Errorf("Threshold = %v, want %v", a.Threshold(), DefaultThreshold)
	}

	strict, err := NewAnalyzer(model, AnalyzerConfig{Threshold: 1})
	if err != nil {
		t.Fatal(err)
	}
	res, err := strict.Analyze("awesome update")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != LabelNeutral {
		t.Errorf("strict threshold: got %s (%.6f), want Neutral", res.Label, res.Confidence)
	}

	info := a.Info()
	if !reflect.DeepEqual(info.Labels, []string{"Negative", "Positive"}) || info.Threshold != DefaultThreshold {
		t.Errorf("Info = %+v", info)
	}
}

func TestLoadAnalyzer(t *testing.T) {
	if _, err := LoadAnalyzer(t.TempDir(), DefaultAnalyzerConfig()); !errors.Is(err, ErrAssetMissing) {
		t.Errorf("empty dir: got %v, want ErrAssetMissing", err)
	}

	root := t.TempDir()
	if _, err := trainFixture(t).Write(root); err != nil {
		t.Fatal(err)
	}
	a, err := LoadAnalyzer(root, DefaultAnalyzerConfig())
	if err != nil {
		t.Fatal(err)
	}
	if a.Info().Generation != 1 {
		t.Errorf("Generation = %d, want 1", a.Info().Generation)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	a := newTestAnalyzer(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Analyze("I love this phone! Check https://example.com for 50% off")
	}
}
