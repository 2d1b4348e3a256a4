package sentiment

import "time"

// Language identifies the stop-word set used by a Normalizer.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
	French  Language = "fr"
	German  Language = "de"
)

// Canonical verdict labels. Labels other than these pass through unchanged.
const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
)

// A LabelScore pairs a class label with the probability the classifier
// assigned to it.
type LabelScore struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// PredictionResult is the verdict for a single text.
type PredictionResult struct {
	Label         string       `json:"label"`      // Final label after the neutral override.
	Confidence    float64      `json:"confidence"` // Probability of the top-ranked class.
	LowConfidence bool         `json:"low_confidence"`
	Scores        []LabelScore `json:"scores,omitempty"` // Full distribution in label order.
}

// A Record is one labeled row of training or validation data.
type Record struct {
	ID        string
	Topic     string
	Sentiment string
	Text      string
}

// SentenceResult is the verdict for one sentence of a longer text.
type SentenceResult struct {
	Text  string `json:"text"`
	Start int    `json:"start"` // Byte offset in the original text
	End   int    `json:"end"`
	PredictionResult
}

// ModelInfo summarizes the loaded bundle.
type ModelInfo struct {
	Generation         uint64    `json:"generation"`
	CreatedAt          time.Time `json:"created_at"`
	Language           Language  `json:"language"`
	Normalizer         string    `json:"normalizer"`
	Features           int       `json:"features"`
	Labels             []string  `json:"labels"`
	ValidationAccuracy float64   `json:"validation_accuracy"`
	Threshold          float64   `json:"threshold"`
}
