package sentiment

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the text to analyze is empty after
	// trimming whitespace. It is a caller error, not a service failure.
	ErrEmptyInput = errors.New("sentiment: empty input text")

	// ErrAssetMissing is returned when no persisted model bundle exists.
	ErrAssetMissing = errors.New("sentiment: model bundle not found")

	// ErrDimensionMismatch is returned when a feature vector does not match
	// the dimensionality the classifier was trained with.
	ErrDimensionMismatch = errors.New("sentiment: feature dimension mismatch")

	// ErrDataLoad is returned for malformed training or validation data.
	ErrDataLoad = errors.New("sentiment: malformed training data")

	// ErrBundleCorrupt is returned when a persisted bundle fails checksum
	// verification or cannot be decoded.
	ErrBundleCorrupt = errors.New("sentiment: model bundle corrupt")

	// ErrNormalizerMismatch is returned when a bundle was trained with a
	// different normalizer than the one loading it.
	ErrNormalizerMismatch = errors.New("sentiment: normalizer mismatch")

	ErrEmptyCorpus = errors.New("sentiment: corpus has no tokens")
	ErrNotFitted   = errors.New("sentiment: not fitted")
	ErrSingleClass = errors.New("sentiment: training labels contain fewer than two classes")
)

// DataLoadError reports the location of a malformed data row.
type DataLoadError struct {
	Path string
	Line int
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

// Unwrap makes errors.Is(err, ErrDataLoad) hold for every DataLoadError.
func (e *DataLoadError) Unwrap() []error {
	return []error{ErrDataLoad, e.Err}
}
