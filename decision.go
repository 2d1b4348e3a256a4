package sentiment

import (
	"fmt"
	"strings"
)

// DefaultThreshold is the confidence below which a verdict becomes Neutral.
const DefaultThreshold = 0.6

// DecisionRule turns a class distribution into a verdict. When the top
// probability is below Threshold the verdict is Neutral regardless of which
// class ranked first.
type DecisionRule struct {
	Threshold float64
}

// DefaultDecisionRule returns a rule with the 0.6 threshold.
func DefaultDecisionRule() DecisionRule {
	return DecisionRule{Threshold: DefaultThreshold}
}

// Decide picks the most probable label from scores. Ties are broken in
// favor of the label that appears first. A top probability exactly at the
// threshold keeps its label. An empty distribution yields Neutral with zero
// confidence.
func (r DecisionRule) Decide(scores []LabelScore) PredictionResult {
	if len(scores) == 0 {
		return PredictionResult{Label: LabelNeutral, LowConfidence: true}
	}
	top := argmax(scores)
	res := PredictionResult{
		Confidence: top.Probability,
		Scores:     scores,
	}
	if top.Probability < r.Threshold {
		res.Label = LabelNeutral
		res.LowConfidence = true
		return res
	}
	res.Label = canonicalLabel(top.Label)
	return res
}

func canonicalLabel(label string) string {
	switch strings.ToLower(label) {
	case "positive":
		return LabelPositive
	case "negative":
		return LabelNegative
	}
	return label
}

// Describe renders a verdict as a short human-readable message.
func Describe(res PredictionResult) string {
	if res.LowConfidence {
		return "Neutral (low confidence)"
	}
	switch res.Label {
	case LabelPositive, LabelNegative:
		return fmt.Sprintf("%s (confidence: %.2f)", res.Label, res.Confidence)
	}
	return "Sentiment: " + res.Label
}
