package matcher

import (
	"strings"
	"unicode/utf8"
)

const (
	minStemmableRunes = 5
	minRootRunes      = 3
)

// DefaultSuffixes is the French ending list used by the fallback stemmer.
// Order matters: the first matching suffix is stripped.
func DefaultSuffixes() []string {
	return []string{
		"tion", "ment", "ance", "ence", "ique", "aire", "eur", "euse", "eux", "aux",
		"als", "ons", "ent", "ant", "ais", "ait", "ées", "és", "er", "ir", "es", "le", "ne",
	}
}

// Stemmer strips a single known ending from long words. It is a heuristic,
// not a linguistic stemmer; the suffix list is tunable.
type Stemmer struct {
	suffixes []string
}

// NewStemmer builds a stemmer over suffixes, tried in order.
func NewStemmer(suffixes []string) Stemmer {
	return Stemmer{suffixes: append([]string(nil), suffixes...)}
}

// Root returns word without its first matching suffix. Words of 4 runes or
// less are left alone, and so is any word whose root would be shorter than
// 3 runes.
func (s Stemmer) Root(word string) (string, bool) {
	if utf8.RuneCountInString(word) < minStemmableRunes {
		return "", false
	}
	for _, suffix := range s.suffixes {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		root := strings.TrimSuffix(word, suffix)
		if utf8.RuneCountInString(root) >= minRootRunes {
			return root, true
		}
	}
	return "", false
}

// Stems returns the distinct tokens plus their roots, in first-seen order.
func (s Stemmer) Stems(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens)*2)
	out := make([]string, 0, len(tokens)*2)
	add := func(w string) {
		if _, ok := seen[w]; !ok {
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	for _, t := range tokens {
		add(t)
		if root, ok := s.Root(t); ok {
			add(root)
		}
	}
	return out
}
