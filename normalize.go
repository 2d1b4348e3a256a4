package sentiment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tsawler/sentiment/internal/storage"
)

// normalizerVersion changes whenever the cleaning steps change, so bundles
// trained under older rules are rejected at load time.
const normalizerVersion = "norm/v1"

// Punctuation is the fixed ASCII punctuation set removed from text.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var (
	digitRe = regexp.MustCompile(`\p{Nd}+`)
	urlRe   = regexp.MustCompile(`(?:http|www)[^\s\v\x{85}\p{Z}]+`)
)

// A Normalizer maps raw text to a cleaned, space-separated token string.
// It is immutable and safe for concurrent use.
type Normalizer struct {
	lang        Language
	stop        map[string]struct{}
	fingerprint string
}

// NewNormalizer builds a Normalizer that drops the stop words of lang.
func NewNormalizer(lang Language) (*Normalizer, error) {
	words, err := StopWords(lang)
	if err != nil {
		return nil, err
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[w] = struct{}{}
	}
	sum := storage.ComputeChecksum([]byte(strings.Join(words, "\n")))
	return &Normalizer{
		lang:        lang,
		stop:        stop,
		fingerprint: fmt.Sprintf("%s/%s/%s", normalizerVersion, lang, sum),
	}, nil
}

var defaultNormalizer = mustNormalizer(English)

func mustNormalizer(lang Language) *Normalizer {
	n, err := NewNormalizer(lang)
	if err != nil {
		panic(err)
	}
	return n
}

// DefaultNormalizer returns the shared English Normalizer.
func DefaultNormalizer() *Normalizer {
	return defaultNormalizer
}

// Normalize cleans text with the English Normalizer.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// NormalizeValue cleans v if it is a string and returns "" otherwise.
func NormalizeValue(v any) string {
	return defaultNormalizer.NormalizeValue(v)
}

// Language returns the stop-word language.
func (n *Normalizer) Language() Language {
	return n.lang
}

// Fingerprint identifies the cleaning rules and stop-word set. Two
// normalizers with equal fingerprints produce identical output.
func (n *Normalizer) Fingerprint() string {
	return n.fingerprint
}

// IsStopWord reports whether the lower-cased token is dropped.
func (n *Normalizer) IsStopWord(token string) bool {
	_, ok := n.stop[token]
	return ok
}

// NormalizeValue cleans v if it is a string and returns "" otherwise.
func (n *Normalizer) NormalizeValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return n.Normalize(s)
}

// Normalize lower-cases text, strips digits, punctuation and URL-like
// tokens, then drops stop words. URLs are removed after punctuation so
// that the output is a fixed point: Normalize(Normalize(t)) == Normalize(t).
func (n *Normalizer) Normalize(text string) string {
	text = strings.ToLower(text)
	text = digitRe.ReplaceAllString(text, "")
	text = strings.Map(dropPunct, text)
	text = urlRe.ReplaceAllString(text, "")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, ok := n.stop[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// NormalizeAll cleans every text in order.
func (n *Normalizer) NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

func dropPunct(r rune) rune {
	if r < 0x80 && strings.ContainsRune(Punctuation, r) {
		return -1
	}
	return r
}
