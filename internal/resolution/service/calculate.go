package service

import (
	"fmt"
	"strconv"
	"strings"

	catalogue "askdata/internal/catalogue/models"
	"askdata/internal/resolution/models"
)

// Calculate applies kind to series. Variation is undefined when fewer than
// two points remain or the first value is zero; Result is then nil.
func Calculate(kind models.CalculationKind, series catalogue.AnnualSeries) models.Calculation {
	c := models.Calculation{Kind: kind}
	if len(series) == 0 {
		return c
	}
	values := series.Values()

	switch kind {
	case models.CalculationAverage:
		total := sum(values)
		r := total / float64(len(values))
		c.Result = &r
		c.Formula = fmt.Sprintf("(%s) / %d", joinValues(values, " + "), len(values))
	case models.CalculationSum:
		r := sum(values)
		c.Result = &r
		c.Formula = joinValues(values, " + ")
	case models.CalculationVariation:
		if len(values) < 2 || values[0] == 0 {
			return c
		}
		first, last := values[0], values[len(values)-1]
		r := (last - first) / first * 100
		c.Result = &r
		c.Formula = fmt.Sprintf("((%s - %s) / %s) × 100", formatValue(last), formatValue(first), formatValue(first))
	}
	return c
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func joinValues(values []float64, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, sep)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
