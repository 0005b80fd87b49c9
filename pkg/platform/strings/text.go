// Package strings provides the text normalization shared by matching, caching
// and prompt building.
package strings

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fold lowercases and trims s. Accents are kept: "Électricité" folds to
// "électricité", not "electricite".
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Words splits s into lowercase words on any rune that is neither a letter
// nor a digit, so "d'électricité" and "SP.POP.TOTL" both split into parts.
//
// Example:
//
//	Words("Accès à l'électricité (%)")
//	// Returns: []string{"accès", "à", "l", "électricité"}
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HasWord reports whether word appears as a whole word in words.
func HasWord(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// DedupeAndTrimLower removes duplicates and empty strings, trimming and
// lowercasing each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrimLower([]string{"  PIB ", "inflation", "pib"})
//	// Returns: []string{"pib", "inflation"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		folded := Fold(v)
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; !ok {
			seen[folded] = struct{}{}
			result = append(result, folded)
		}
	}

	return result
}

// FirstSentence returns the text before the first '.', cut to at most max
// runes on a word boundary.
func FirstSentence(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	cut := string([]rune(s)[:max])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
