package sentiment

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestTrain(t *testing.T) {
	model, metrics, err := NewTrainer(testTrainingConfig()).Train(context.Background(), fixtureRecords())
	if err != nil {
		t.Fatal(err)
	}

	if metrics.Records != len(fixtureRecords()) {
		t.Errorf("Records = %d, want %d", metrics.Records, len(fixtureRecords()))
	}
	if metrics.Features != model.Vectorizer().Dim() || metrics.Features == 0 {
		t.Errorf("Features = %d, vectorizer dim %d", metrics.Features, model.Vectorizer().Dim())
	}
	if !reflect.DeepEqual(metrics.Labels, []string{"Negative", "Positive"}) {
		t.Errorf("Labels = %v", metrics.Labels)
	}
	if metrics.TrainAccuracy != 1 {
		t.Errorf("TrainAccuracy = %v, want 1", metrics.TrainAccuracy)
	}

	man := model.Manifest()
	if man.Normalizer != DefaultNormalizer().Fingerprint() {
		t.Errorf("manifest normalizer = %s, want %s", man.Normalizer, DefaultNormalizer().Fingerprint())
	}
	if man.Generation != 0 {
		t.Errorf("unwritten model has generation %d", man.Generation)
	}
}

func TestTrainErrors(t *testing.T) {
	ctx := context.Background()
	trainer := NewTrainer(DefaultTrainingConfig())

	if _, _, err := trainer.Train(ctx, nil); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("no records: got %v, want ErrEmptyCorpus", err)
	}

	blank := []Record{{"1", "t", "Positive", "the and is"}, {"2", "t", "Negative", "123 !!!"}}
	if _, _, err := trainer.Train(ctx, blank); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("blank texts: got %v, want ErrEmptyCorpus", err)
	}

	single := fixtureRecords()
	for i := range single {
		single[i].Sentiment = "Positive"
	}
	if _, _, err := trainer.Train(ctx, single); !errors.Is(err, ErrSingleClass) {
		t.Errorf("one label: got %v, want ErrSingleClass", err)
	}
}

func TestTrainReproducible(t *testing.T) {
	a := trainFixture(t)
	b := trainFixture(t)

	if !reflect.DeepEqual(a.Vectorizer().Vocabulary(), b.Vectorizer().Vocabulary()) {
		t.Fatal("vocabularies differ between identical training runs")
	}
	for _, r := range validationRecords() {
		sa, err := a.Scores(r.Text)
		if err != nil {
			t.Fatal(err)
		}
		sb, _ := b.Scores(r.Text)
		for k := range sa {
			if math.Abs(sa[k].Probability-sb[k].Probability) > 1e-12 {
				t.Errorf("Text: %q\nRun 1: %v\nRun 2: %v", r.Text, sa, sb)
			}
		}
	}
}

func TestEvaluate(t *testing.T) {
	model := trainFixture(t)
	records := append(validationRecords(), Record{"105", "Misc", "Irrelevant", "love phone"})

	res, err := Evaluate(model, records)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != len(records) {
		t.Errorf("Count = %d, want %d", res.Count, len(records))
	}
	if want := 4.0 / 5.0; math.Abs(res.Accuracy-want) > 1e-12 {
		t.Errorf("Accuracy = %v, want %v", res.Accuracy, want)
	}

	wantLabels := []string{"Irrelevant", "Negative", "Positive"}
	if !reflect.DeepEqual(res.Confusion.Labels, wantLabels) {
		t.Errorf("Confusion labels = %v, want %v", res.Confusion.Labels, wantLabels)
	}
	total := 0
	for _, row := range res.Confusion.Counts {
		for _, n := range row {
			total += n
		}
	}
	if total != len(records) {
		t.Errorf("confusion matrix counts %d records, want %d", total, len(records))
	}
	if res.Confusion.Counts[0][2] != 1 {
		t.Errorf("Irrelevant row = %v, want one prediction of Positive", res.Confusion.Counts[0])
	}

	for _, m := range res.PerLabel {
		if m.Label == "Irrelevant" && (m.Recall != 0 || m.Support != 1) {
			t.Errorf("Irrelevant metrics = %+v", m)
		}
	}
	if res.Loss <= 0 {
		t.Errorf("Loss = %v, want > 0", res.Loss)
	}

	empty, err := Evaluate(model, nil)
	if err != nil || empty.Count != 0 {
		t.Errorf("Evaluate(nil) = %+v, %v", empty, err)
	}
}

func TestCrossValidate(t *testing.T) {
	trainer := NewTrainer(testTrainingConfig())
	records := fixtureRecords()

	res, err := trainer.CrossValidate(context.Background(), records, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FoldResults) != 3 {
		t.Fatalf("FoldResults = %d, want 3", len(res.FoldResults))
	}
	count := 0
	for _, f := range res.FoldResults {
		count += f.Count
	}
	if count != len(records) {
		t.Errorf("folds cover %d records, want %d", count, len(records))
	}
	if res.MeanAccuracy < 0 || res.MeanAccuracy > 1 || res.StdAccuracy < 0 {
		t.Errorf("MeanAccuracy %v, StdAccuracy %v", res.MeanAccuracy, res.StdAccuracy)
	}
	if !reflect.DeepEqual(records, fixtureRecords()) {
		t.Error("CrossValidate modified its input")
	}

	if _, err := trainer.CrossValidate(context.Background(), records, 1); err == nil {
		t.Error("expected error for k=1")
	}
	if _, err := trainer.CrossValidate(context.Background(), records[:2], 3); err == nil {
		t.Error("expected error for fewer records than folds")
	}
}
