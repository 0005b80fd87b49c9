// Package matcher scores catalogue indicators against free-text queries.
//
// Scoring ladder, first tier that applies wins:
//
//	1000  name equals query        900  code equals query
//	 500  name starts with query   450  code starts with query
//	 300  name contains query      250  code contains query
//
// Otherwise each query token found as a whole word in the name counts 2 and
// in the code 1.5; the sum is multiplied by 50, plus 100 when every token of
// a multi-token query matched. With no whole-word hit, each stem found inside
// (or as the prefix of) a name word scores 30.
package matcher

import (
	"sort"
	"strings"

	"askdata/internal/catalogue/models"
	textutil "askdata/pkg/platform/strings"
)

const (
	scoreNameExact  = 1000
	scoreCodeExact  = 900
	scoreNamePrefix = 500
	scoreCodePrefix = 450
	scoreNameSubstr = 300
	scoreCodeSubstr = 250

	weightNameWord  = 2.0
	weightCodeWord  = 1.5
	tokenMultiplier = 50
	allTokensBonus  = 100
	stemHitScore    = 30

	minTokenRunes = 2
	minStemRunes  = 3
)

// Candidate is one scored indicator.
type Candidate struct {
	Indicator models.Indicator
	Score     float64
}

// Matcher ranks indicators. The zero value is not usable; use New.
type Matcher struct {
	stemmer Stemmer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithStemmer replaces the default stemmer.
func WithStemmer(s Stemmer) Option {
	return func(m *Matcher) {
		m.stemmer = s
	}
}

// New creates a Matcher with the default French stemmer.
func New(opts ...Option) *Matcher {
	m := &Matcher{stemmer: NewStemmer(DefaultSuffixes())}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type preparedQuery struct {
	folded string
	tokens []string
	stems  []string
}

func (m *Matcher) prepare(query string) preparedQuery {
	q := preparedQuery{folded: textutil.Fold(query)}
	for _, w := range textutil.Words(q.folded) {
		if textutil.RuneLen(w) >= minTokenRunes {
			q.tokens = append(q.tokens, w)
		}
	}
	q.stems = m.stemmer.Stems(q.tokens)
	return q
}

// Rank scores every indicator and returns those with a positive score,
// highest first. Equal scores keep catalogue order.
func (m *Matcher) Rank(query string, indicators []models.Indicator) []Candidate {
	q := m.prepare(query)
	if q.folded == "" {
		return nil
	}

	var out []Candidate
	for _, ind := range indicators {
		if s := m.score(q, ind); s > 0 {
			out = append(out, Candidate{Indicator: ind, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Score scores a single indicator against query.
func (m *Matcher) Score(query string, ind models.Indicator) float64 {
	q := m.prepare(query)
	if q.folded == "" {
		return 0
	}
	return m.score(q, ind)
}

// Search returns the indicators matching query in rank order.
func (m *Matcher) Search(query string, indicators []models.Indicator) []models.Indicator {
	ranked := m.Rank(query, indicators)
	out := make([]models.Indicator, len(ranked))
	for i, c := range ranked {
		out[i] = c.Indicator
	}
	return out
}

func (m *Matcher) score(q preparedQuery, ind models.Indicator) float64 {
	name := strings.ToLower(ind.Name)
	code := strings.ToLower(ind.Code)

	switch {
	case q.folded == name:
		return scoreNameExact
	case q.folded == code:
		return scoreCodeExact
	case strings.HasPrefix(name, q.folded):
		return scoreNamePrefix
	case strings.HasPrefix(code, q.folded):
		return scoreCodePrefix
	case strings.Contains(name, q.folded):
		return scoreNameSubstr
	case strings.Contains(code, q.folded):
		return scoreCodeSubstr
	}

	nameWords := textutil.Words(name)
	codeWords := textutil.Words(code)

	var weight float64
	matched := 0
	for _, t := range q.tokens {
		switch {
		case textutil.HasWord(nameWords, t):
			weight += weightNameWord
			matched++
		case textutil.HasWord(codeWords, t):
			weight += weightCodeWord
			matched++
		}
	}
	if matched > 0 {
		s := weight * tokenMultiplier
		if matched == len(q.tokens) && len(q.tokens) > 1 {
			s += allTokensBonus
		}
		return s
	}

	hits := 0
	for _, stem := range q.stems {
		if textutil.RuneLen(stem) < minStemRunes {
			continue
		}
		for _, w := range nameWords {
			if strings.Contains(w, stem) || strings.HasPrefix(w, stem) {
				hits++
				break
			}
		}
	}
	return float64(hits * stemHitScore)
}
