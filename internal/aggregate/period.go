package aggregate

import (
	"fmt"
	"strconv"
	"strings"

	"askdata/internal/catalogue/models"
)

// ParsePeriod parses a time period into (year, sub-period, frequency).
// Accepted forms: "2020" (annual), "2020-07" or "2020-M07" (monthly),
// "2020-Q3" (quarterly).
func ParsePeriod(period string) (int, int, models.Frequency, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return 0, 0, "", fmt.Errorf("empty period")
	}

	yearPart, subPart, hasSub := strings.Cut(period, "-")
	year, err := parseYear(yearPart)
	if err != nil {
		return 0, 0, "", err
	}
	if !hasSub {
		return year, 0, models.FrequencyAnnual, nil
	}

	freq := models.FrequencyMonthly
	switch {
	case strings.HasPrefix(subPart, "Q"):
		freq = models.FrequencyQuarterly
		subPart = subPart[1:]
	case strings.HasPrefix(subPart, "M"):
		subPart = subPart[1:]
	}

	sub, err := strconv.Atoi(subPart)
	if err != nil {
		return 0, 0, "", fmt.Errorf("period %q: invalid sub-period", period)
	}
	if sub < 1 || sub > freq.MaxSubPeriod() {
		return 0, 0, "", fmt.Errorf("period %q: sub-period out of range", period)
	}
	return year, sub, freq, nil
}

func parseYear(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	year, err := strconv.Atoi(s)
	if err != nil || year <= 0 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}
