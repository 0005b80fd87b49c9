package aggregate

import (
	"errors"
	"math"
	"sort"

	"askdata/internal/catalogue/models"
)

// ErrNotEnoughData is returned when an indicator has fewer usable annual
// points than the minimum. Such indicators are left out of the catalogue.
var ErrNotEnoughData = errors.New("not enough annual data")

const (
	// MinUsablePoints is the smallest series worth exposing.
	MinUsablePoints = 2

	roundingScale = 1e6
)

// Result is the outcome of normalizing one indicator.
type Result struct {
	Series models.AnnualSeries
	// Frequency is the variant the series was built from.
	Frequency models.Frequency
	// Strategy is empty when the annual variant was used as-is.
	Strategy Strategy
	// Dropped counts malformed observations discarded across all variants.
	Dropped int
}

// Normalizer turns raw multi-frequency observations into one annual series.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	table     *Table
	minPoints int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTable sets the strategy table.
func WithTable(t *Table) Option {
	return func(n *Normalizer) {
		if t != nil {
			n.table = t
		}
	}
}

// WithMinPoints overrides the minimum number of annual points.
func WithMinPoints(min int) Option {
	return func(n *Normalizer) {
		if min > 0 {
			n.minPoints = min
		}
	}
}

// New constructs a Normalizer with the default strategy table.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		table:     DefaultTable(),
		minPoints: MinUsablePoints,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Strategy exposes the strategy resolved for an indicator.
func (n *Normalizer) Strategy(code, theme string) Strategy {
	return n.table.Resolve(code, theme)
}

// Normalize builds the annual series of one indicator.
//
// The annual variant wins when it has enough points. Otherwise the sub-annual
// variant producing the most distinct years is aggregated, quarterly winning
// ties over monthly.
func (n *Normalizer) Normalize(code, theme string, variants []models.Variant) (Result, error) {
	grouped, dropped := group(variants)

	if annual, ok := grouped[models.FrequencyAnnual]; ok {
		series := passthrough(annual)
		if len(series) >= n.minPoints {
			return Result{Series: series, Frequency: models.FrequencyAnnual, Dropped: dropped}, nil
		}
	}

	strategy := n.table.Resolve(code, theme)
	var best Result
	for _, freq := range []models.Frequency{models.FrequencyQuarterly, models.FrequencyMonthly} {
		obs, ok := grouped[freq]
		if !ok {
			continue
		}
		series := Annualize(obs, strategy)
		if len(series) > len(best.Series) {
			best = Result{Series: series, Frequency: freq, Strategy: strategy}
		}
	}
	best.Dropped = dropped

	if len(best.Series) < n.minPoints {
		return Result{Dropped: dropped}, ErrNotEnoughData
	}
	return best, nil
}

// Annualize aggregates sub-annual observations per year with strategy.
// Years without observations are absent. Values are rounded to 6 decimals.
func Annualize(obs []models.RawObservation, strategy Strategy) models.AnnualSeries {
	type bucket struct {
		sum     float64
		count   int
		last    float64
		lastSub int
	}

	buckets := make(map[int]*bucket)
	for _, o := range obs {
		b, ok := buckets[o.Year]
		if !ok {
			b = &bucket{}
			buckets[o.Year] = b
		}
		b.sum += o.Value
		b.count++
		// Later input wins among equal sub-periods.
		if b.count == 1 || o.SubPeriod >= b.lastSub {
			b.last = o.Value
			b.lastSub = o.SubPeriod
		}
	}

	years := make([]int, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	sort.Ints(years)

	series := make(models.AnnualSeries, 0, len(years))
	for _, year := range years {
		b := buckets[year]
		var v float64
		switch strategy {
		case StrategySum:
			v = b.sum
		case StrategyLast:
			v = b.last
		default:
			v = b.sum / float64(b.count)
		}
		series = append(series, models.Point{Year: year, Value: round(v)})
	}
	return series
}

// passthrough orders annual observations by year. A repeated year keeps its
// last value in input order. Values are not rounded.
func passthrough(obs []models.RawObservation) models.AnnualSeries {
	byYear := make(map[int]float64, len(obs))
	for _, o := range obs {
		byYear[o.Year] = o.Value
	}
	series := make(models.AnnualSeries, 0, len(byYear))
	for year, v := range byYear {
		series = append(series, models.Point{Year: year, Value: v})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series
}

// group merges variants by frequency in input order and drops malformed
// observations.
func group(variants []models.Variant) (map[models.Frequency][]models.RawObservation, int) {
	grouped := make(map[models.Frequency][]models.RawObservation)
	dropped := 0
	for _, v := range variants {
		if !v.Frequency.IsValid() {
			dropped += len(v.Observations)
			continue
		}
		for _, o := range v.Observations {
			if !valid(o, v.Frequency) {
				dropped++
				continue
			}
			grouped[v.Frequency] = append(grouped[v.Frequency], o)
		}
	}
	return grouped, dropped
}

func valid(o models.RawObservation, freq models.Frequency) bool {
	if o.Year <= 0 || math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
		return false
	}
	if freq == models.FrequencyAnnual {
		return o.SubPeriod == 0
	}
	return o.SubPeriod >= 1 && o.SubPeriod <= freq.MaxSubPeriod()
}

func round(v float64) float64 {
	return math.Round(v*roundingScale) / roundingScale
}
