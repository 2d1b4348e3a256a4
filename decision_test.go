package sentiment

import "testing"

func TestDecide(t *testing.T) {
	tests := []struct {
		scores     []LabelScore
		threshold  float64
		label      string
		confidence float64
		low        bool
		desc       string
	}{
		{
			[]LabelScore{{"Positive", 0.9}, {"Negative", 0.05}, {"Neutral", 0.05}},
			0.6, "Positive", 0.9, false, "Confident positive",
		},
		{
			[]LabelScore{{"Positive", 0.5}, {"Negative", 0.45}, {"Neutral", 0.05}},
			0.6, "Neutral", 0.5, true, "Below threshold becomes neutral",
		},
		{
			[]LabelScore{{"Negative", 0.6}, {"Positive", 0.4}},
			0.6, "Negative", 0.6, false, "Exactly at threshold keeps polarity",
		},
		{
			[]LabelScore{{"negative", 0.2}, {"positive", 0.8}},
			0.6, "Positive", 0.8, false, "Lower-case label canonicalized",
		},
		{
			[]LabelScore{{"NEGATIVE", 0.7}, {"POSITIVE", 0.3}},
			0.6, "Negative", 0.7, false, "Upper-case label canonicalized",
		},
		{
			[]LabelScore{{"Irrelevant", 0.7}, {"Positive", 0.3}},
			0.6, "Irrelevant", 0.7, false, "Other labels pass through",
		},
		{
			[]LabelScore{{"Negative", 0.5}, {"Positive", 0.5}},
			0.4, "Negative", 0.5, false, "Tie goes to first label",
		},
		{
			[]LabelScore{{"Negative", 0.3}, {"Positive", 0.7}},
			0.8, "Neutral", 0.7, true, "Custom threshold",
		},
		{
			nil, 0.6, "Neutral", 0, true, "No scores",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := DecisionRule{Threshold: tt.threshold}.Decide(tt.scores)
			if got.Label != tt.label || got.Confidence != tt.confidence || got.LowConfidence != tt.low {
				t.Errorf("Scores: %v\nExpected: %s %.2f low=%v\nGot: %s %.2f low=%v",
					tt.scores, tt.label, tt.confidence, tt.low, got.Label, got.Confidence, got.LowConfidence)
			}
		})
	}
}

func TestDefaultDecisionRule(t *testing.T) {
	if got := DefaultDecisionRule().Threshold; got != 0.6 {
		t.Errorf("default threshold = %v, want 0.6", got)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		res      PredictionResult
		expected string
	}{
		{PredictionResult{Label: LabelPositive, Confidence: 0.934}, "Positive (confidence: 0.93)"},
		{PredictionResult{Label: LabelNegative, Confidence: 0.6}, "Negative (confidence: 0.60)"},
		{PredictionResult{Label: LabelNeutral, Confidence: 0.5, LowConfidence: true}, "Neutral (low confidence)"},
		{PredictionResult{Label: "Irrelevant", Confidence: 0.8}, "Sentiment: Irrelevant"},
	}
	for _, tt := range tests {
		if got := Describe(tt.res); got != tt.expected {
			t.Errorf("Describe(%+v) = %q, want %q", tt.res, got, tt.expected)
		}
	}
}
