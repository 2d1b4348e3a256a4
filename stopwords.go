package sentiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bbalet/stopwords"
)

// englishStopWords is the NLTK English stop-word list. Contracted forms
// never survive punctuation removal but are kept so the set matches the
// published list exactly.
var englishStopWords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
	"you're", "you've", "you'll", "you'd", "your", "yours", "yourself",
	"yourselves", "he", "him", "his", "himself", "she", "she's", "her", "hers",
	"herself", "it", "it's", "its", "itself", "they", "them", "their", "theirs",
	"themselves", "what", "which", "who", "whom", "this", "that", "that'll",
	"these", "those", "am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of",
	"at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
	"very", "s", "t", "can", "will", "just", "don", "don't", "should",
	"should've", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain", "aren",
	"aren't", "couldn", "couldn't", "didn", "didn't", "doesn", "doesn't",
	"hadn", "hadn't", "hasn", "hasn't", "haven", "haven't", "isn", "isn't",
	"ma", "mightn", "mightn't", "mustn", "mustn't", "needn", "needn't", "shan",
	"shan't", "shouldn", "shouldn't", "wasn", "wasn't", "weren", "weren't",
	"won", "won't", "wouldn", "wouldn't",
}

// SupportedLanguages returns the languages a Normalizer can be built for.
func SupportedLanguages() []Language {
	return []Language{English, Spanish, French, German}
}

// IsSupported reports whether lang has a stop-word set.
func IsSupported(lang Language) bool {
	for _, l := range SupportedLanguages() {
		if l == lang {
			return true
		}
	}
	return false
}

// StopWords returns the sorted stop-word set for lang.
func StopWords(lang Language) ([]string, error) {
	var words []string
	switch lang {
	case English:
		words = append(words, englishStopWords...)
	case Spanish, French, German:
		words = probeStopWords(string(lang))
	default:
		return nil, fmt.Errorf("sentiment: unsupported language %q", lang)
	}
	sort.Strings(words)
	return dedupSorted(words), nil
}

// probeStopWords derives a stop-word set from the stopwords package, which
// does not export its dictionaries. Each candidate is cleaned on its own and
// counts as a stop word when nothing of it survives.
func probeStopWords(langCode string) []string {
	var out []string
	for _, word := range stopWordCandidates(langCode) {
		cleaned := strings.TrimSpace(stopwords.CleanString(word, langCode, false))
		if cleaned != word {
			out = append(out, word)
		}
	}
	return out
}

func stopWordCandidates(langCode string) []string {
	switch langCode {
	case "es":
		return []string{
			"el", "la", "los", "las", "un", "una", "unos", "unas", "y", "o", "pero",
			"que", "de", "en", "a", "por", "para", "con", "sin", "sobre", "entre",
			"hacia", "hasta", "desde", "durante", "mediante", "ante", "bajo", "contra",
			"según", "tras", "es", "está", "son", "están", "ser", "estar", "hay",
			"había", "fue", "era", "sido", "siendo", "yo", "tú", "él", "ella", "ello",
			"nosotros", "vosotros", "ellos", "ellas", "mi", "tu", "su", "nuestro",
			"vuestro", "este", "esta", "estos", "estas", "ese", "esa", "esos", "esas",
			"aquel", "aquella", "aquellos", "aquellas", "lo", "le", "les", "se", "me",
			"te", "nos", "os", "como", "cuando", "donde", "porque", "si", "no", "sí",
			"más", "menos", "muy", "mucho", "poco", "todo", "nada", "algo", "cada",
			"otro", "mismo", "tan", "tanto", "cual", "quien", "cuyo", "qué", "dónde",
		}
	case "fr":
		return []string{
			"le", "la", "les", "un", "une", "des", "de", "du", "et", "à", "au", "aux",
			"en", "pour", "par", "avec", "sans", "sous", "sur", "dans", "contre",
			"vers", "chez", "entre", "depuis", "pendant", "avant", "après", "devant",
			"derrière", "est", "sont", "être", "avoir", "fait", "faire", "dit", "dire",
			"je", "tu", "il", "elle", "on", "nous", "vous", "ils", "elles", "mon",
			"ton", "son", "ma", "ta", "sa", "mes", "tes", "ses", "notre", "votre",
			"leur", "nos", "vos", "leurs", "ce", "cette", "ces", "celui", "celle",
			"ceux", "celles", "ceci", "cela", "ça", "que", "qui", "quoi", "dont", "où",
			"si", "ne", "pas", "plus", "moins", "très", "bien", "peu", "trop", "tout",
			"tous", "toute", "toutes", "même", "autre", "aucun", "chaque",
		}
	case "de":
		return []string{
			"der", "die", "das", "den", "dem", "des", "ein", "eine", "einen", "einem",
			"einer", "eines", "und", "oder", "aber", "doch", "sondern", "denn", "weil",
			"wenn", "als", "dass", "ob", "zu", "in", "an", "auf", "aus", "bei", "mit",
			"nach", "von", "vor", "für", "über", "unter", "zwischen", "durch", "gegen",
			"ohne", "um", "bis", "seit", "während", "ist", "sind", "war", "waren",
			"sein", "haben", "werden", "können", "müssen", "sollen", "wollen", "ich",
			"du", "er", "sie", "es", "wir", "ihr", "mein", "dein", "unser", "euer",
			"dieser", "diese", "dieses", "jener", "jene", "jenes", "welcher",
			"welche", "welches", "man", "sich", "nicht", "kein", "keine", "sehr",
			"schon", "noch", "nur", "auch", "wieder", "immer", "alle", "alles",
			"viel", "mehr", "etwas", "nichts", "wo", "wann", "wie", "warum", "was",
			"wer", "wen", "wem",
		}
	}
	return nil
}

func dedupSorted(words []string) []string {
	out := words[:0]
	for i, w := range words {
		if i > 0 && w == words[i-1] {
			continue
		}
		out = append(out, w)
	}
	return out
}
