package matcher

import (
	"sort"
	"strings"

	"askdata/internal/catalogue/models"
	textutil "askdata/pkg/platform/strings"
)

const (
	// DefaultRelatedLimit is the number of related names returned by default.
	DefaultRelatedLimit = 5

	relatedPrefixScore = 100
	relatedWordScore   = 50
	relatedThemeScore  = 30
	minMeaningfulRunes = 4
)

var relatedStopwords = map[string]struct{}{
	"dans": {}, "pour": {}, "avec": {}, "sans": {}, "plus": {},
}

type themeBucket struct {
	name     string
	keywords []string
}

// themeBuckets are checked in order; an indicator belongs to the first bucket
// with a keyword contained in its lowercased name.
var themeBuckets = []themeBucket{
	{"économie", []string{"pib", "gdp", "croissance", "économique", "inflation", "commerce", "export", "import"}},
	{"santé", []string{"santé", "health", "mortalité", "mortality", "espérance", "life expectancy", "médical", "hôpital"}},
	{"éducation", []string{"éducation", "education", "école", "school", "alphabét", "literacy", "étudiant", "enrollment"}},
	{"énergie", []string{"énergie", "energy", "électricité", "electric", "renouvelable", "renewable", "combustible"}},
	{"démographie", []string{"population", "démographie", "naissance", "birth", "urbain", "urban", "rural", "densité"}},
	{"emploi", []string{"emploi", "employment", "chômage", "unemployment", "travail", "labor", "salaire", "wage"}},
	{"infrastructure", []string{"infrastructure", "route", "road", "transport", "eau", "water", "assainissement", "sanitation"}},
}

// ThemeBucket returns the coarse theme of an indicator name, or "".
func ThemeBucket(name string) string {
	lower := strings.ToLower(name)
	for _, b := range themeBuckets {
		if bucketMatches(b, lower) {
			return b.name
		}
	}
	return ""
}

func bucketMatches(b themeBucket, lowerName string) bool {
	for _, kw := range b.keywords {
		if strings.Contains(lowerName, kw) {
			return true
		}
	}
	return false
}

// CategoryPrefix returns the code text before the first '.', or its first
// two characters when the code has no '.'.
func CategoryPrefix(code string) string {
	if head, _, ok := strings.Cut(code, "."); ok {
		return head
	}
	if len(code) <= 2 {
		return code
	}
	return code[:2]
}

// Related returns the names of up to limit indicators related to source,
// best first. Equal scores keep catalogue order. limit <= 0 uses
// DefaultRelatedLimit.
func Related(source models.Indicator, indicators []models.Indicator, limit int) []string {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	prefix := CategoryPrefix(source.Code)
	sourceWords := meaningfulWords(source.Name)
	lowerSource := strings.ToLower(source.Name)

	var bucket *themeBucket
	for i := range themeBuckets {
		if bucketMatches(themeBuckets[i], lowerSource) {
			bucket = &themeBuckets[i]
			break
		}
	}

	type scored struct {
		name  string
		score int
	}
	var out []scored
	for _, ind := range indicators {
		if ind.Code == source.Code {
			continue
		}
		score := 0
		if strings.HasPrefix(ind.Code, prefix) {
			score += relatedPrefixScore
		}
		for w := range meaningfulWords(ind.Name) {
			if _, ok := sourceWords[w]; ok {
				score += relatedWordScore
			}
		}
		if bucket != nil && bucketMatches(*bucket, strings.ToLower(ind.Name)) {
			score += relatedThemeScore
		}
		if score > 0 {
			out = append(out, scored{name: ind.Name, score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })

	if len(out) > limit {
		out = out[:limit]
	}
	names := make([]string, len(out))
	for i, s := range out {
		names[i] = s.name
	}
	return names
}

func meaningfulWords(name string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range textutil.Words(name) {
		if textutil.RuneLen(w) < minMeaningfulRunes {
			continue
		}
		if _, stop := relatedStopwords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}
