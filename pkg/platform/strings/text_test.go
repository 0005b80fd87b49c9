package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "splits on punctuation and apostrophes",
			input:    "Accès à l'électricité (% de la population)",
			expected: []string{"accès", "à", "l", "électricité", "de", "la", "population"},
		},
		{
			name:     "splits dotted codes",
			input:    "SP.POP.TOTL",
			expected: []string{"sp", "pop", "totl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Words(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "lowercases and dedupes",
			input:    []string{"PIB", "pib", "Pib"},
			expected: []string{"pib"},
		},
		{
			name:     "trims, lowercases, and drops empties",
			input:    []string{"  INFLATION ", "", "pib", "Inflation"},
			expected: []string{"inflation", "pib"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}

func TestFirstSentence(t *testing.T) {
	t.Run("stops at the first period", func(t *testing.T) {
		assert.Equal(t, "Population totale", FirstSentence("Population totale. Source: ANStat.", 120))
	})

	t.Run("cuts long sentences on a word boundary", func(t *testing.T) {
		long := strings.Repeat("mot ", 40)
		got := FirstSentence(long, 18)
		assert.LessOrEqual(t, RuneLen(got), 18)
		assert.False(t, strings.HasSuffix(got, " "))
		assert.True(t, strings.HasPrefix(long, got))
	})

	t.Run("counts runes, not bytes", func(t *testing.T) {
		assert.Equal(t, "éé", FirstSentence("éé éé", 3))
	})
}

func TestHasWord(t *testing.T) {
	words := Words("Croissance de la population")
	assert.True(t, HasWord(words, "population"))
	assert.False(t, HasWord(words, "pop"))
}
