package service

import (
	"regexp"
	"strconv"
	"strings"

	catalogue "askdata/internal/catalogue/models"
	"askdata/internal/resolution/models"
	textutil "askdata/pkg/platform/strings"
)

var yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

var (
	openEndMarkers   = []string{"depuis", "à partir de", "après", "since"}
	openStartMarkers = []string{"jusqu'en", "jusqu'à", "avant", "until"}
)

// ExtractYears reads a year range from free text. Two or more years bound
// the range by their minimum and maximum. A single year is exact unless a
// marker such as "depuis" or "jusqu'en" precedes it.
func ExtractYears(query string) catalogue.YearRange {
	matches := yearPattern.FindAllStringIndex(query, -1)
	if len(matches) == 0 {
		return catalogue.YearRange{}
	}
	years := make([]int, 0, len(matches))
	for _, m := range matches {
		y, _ := strconv.Atoi(query[m[0]:m[1]])
		years = append(years, y)
	}
	if len(years) > 1 {
		lo, hi := years[0], years[0]
		for _, y := range years[1:] {
			lo, hi = min(lo, y), max(hi, y)
		}
		return catalogue.YearRange{Start: lo, End: hi}
	}

	y := years[0]
	before := strings.ToLower(query[:matches[0][0]])
	for _, m := range openEndMarkers {
		if strings.HasSuffix(strings.TrimSpace(before), m) {
			return catalogue.YearRange{Start: y}
		}
	}
	for _, m := range openStartMarkers {
		if strings.HasSuffix(strings.TrimSpace(before), m) {
			return catalogue.YearRange{End: y}
		}
	}
	return catalogue.YearRange{Start: y, End: y}
}

var calculationKeywords = []struct {
	words []string
	kind  models.CalculationKind
}{
	{[]string{"moyenne", "moyen", "average"}, models.CalculationAverage},
	{[]string{"variation", "évolution", "evolution"}, models.CalculationVariation},
	{[]string{"somme", "cumul", "cumulé", "cumulés"}, models.CalculationSum},
}

// DetectCalculation finds a requested calculation in free text.
func DetectCalculation(query string) (models.CalculationKind, bool) {
	words := textutil.Words(query)
	for _, k := range calculationKeywords {
		for _, w := range k.words {
			if textutil.HasWord(words, w) {
				return k.kind, true
			}
		}
	}
	folded := textutil.Fold(query)
	if strings.Contains(folded, "croissance entre") {
		return models.CalculationVariation, true
	}
	return "", false
}
