package sentiment

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// fixtureRecords alternates classes so that every contiguous fold holds
// both labels. "love" only occurs in positive rows and "hate" only in
// negative ones; every positive row has a mirror-image
// negative row, so "phone", "game" and the intercepts carry no polarity.
func fixtureRecords() []Record {
	return []Record{
		{"1", "Phone", "Positive", "I love my new phone"},
		{"2", "Phone", "Negative", "I hate my new phone"},
		{"3", "Phone", "Positive", "love the camera, great phone"},
		{"4", "Phone", "Negative", "hate the camera, awful phone"},
		{"5", "Game", "Positive", "Great game, love it!"},
		{"6", "Game", "Negative", "Awful game, hate it!"},
		{"7", "App", "Positive", "Awesome update, very happy"},
		{"8", "App", "Negative", "Terrible update, very sad"},
		{"9", "App", "Positive", "happy with this awesome service"},
		{"10", "App", "Negative", "sad about this terrible service"},
		{"11", "Misc", "Positive", "What a great day, love everyone"},
		{"12", "Misc", "Negative", "What an awful day, hate everyone"},
	}
}

func validationRecords() []Record {
	return []Record{
		{"101", "Phone", "Positive", "love this phone"},
		{"102", "Phone", "Negative", "hate this phone"},
		{"103", "Game", "Positive", "awesome game"},
		{"104", "Game", "Negative", "terrible game"},
	}
}

// testTrainingConfig weakens regularization so the small fixture yields
// confident predictions.
func testTrainingConfig() TrainingConfig {
	cfg := DefaultTrainingConfig()
	cfg.Classifier.C = 100
	return cfg
}

func trainFixture(t testing.TB) *Model {
	t.Helper()
	model, _, err := NewTrainer(testTrainingConfig()).Train(context.Background(), fixtureRecords())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return model
}

func writeCSV(t testing.TB, dir, name string, records []Record) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := WriteRecords(f, records); err != nil {
		t.Fatal(err)
	}
	return path
}
