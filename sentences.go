package sentiment

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"
)

// A Sentence represents a segmented portion of text.
type Sentence struct {
	Text  string // The sentence's text, trimmed of surrounding space.
	Start int    // Byte offset of Text in the original text
	End   int
}

// String returns the text content of the sentence
func (s Sentence) String() string {
	return s.Text
}

// Segmenter splits text into sentences with the punkt algorithm trained on
// English. It is safe for concurrent use.
type Segmenter struct {
	pool sync.Pool
}

// NewSegmenter loads the English punkt parameters.
func NewSegmenter() (*Segmenter, error) {
	first, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	s := &Segmenter{}
	s.pool.New = func() interface{} {
		t, err := english.NewSentenceTokenizer(nil)
		if err != nil {
			return nil
		}
		return t
	}
	s.pool.Put(first)
	return s, nil
}

func (s *Segmenter) get() (*sentences.DefaultSentenceTokenizer, error) {
	t, ok := s.pool.Get().(*sentences.DefaultSentenceTokenizer)
	if !ok || t == nil {
		return nil, fmt.Errorf("load sentence tokenizer")
	}
	return t, nil
}

// Segment returns the non-blank sentences of text in order.
func (s *Segmenter) Segment(text string) ([]Sentence, error) {
	tok, err := s.get()
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(tok)

	var out []Sentence
	cursor := 0
	for _, sent := range tok.Tokenize(text) {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed == "" {
			continue
		}
		start := cursor
		if i := strings.Index(text[cursor:], trimmed); i >= 0 {
			start = cursor + i
		}
		end := start + len(trimmed)
		if end > len(text) {
			end = len(text)
		}
		out = append(out, Sentence{Text: trimmed, Start: start, End: end})
		cursor = end
	}
	return out, nil
}
