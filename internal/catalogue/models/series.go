package models

// Point is one annual value.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// AnnualSeries is ordered by strictly increasing year.
type AnnualSeries []Point

// YearRange bounds a series filter. Zero bounds are open.
type YearRange struct {
	Start int
	End   int
}

// IsZero reports whether the range is unbounded on both sides.
func (r YearRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// Contains reports whether year falls inside the range.
func (r YearRange) Contains(year int) bool {
	if r.Start != 0 && year < r.Start {
		return false
	}
	if r.End != 0 && year > r.End {
		return false
	}
	return true
}

// Filter returns the points inside r. The receiver is never modified.
func (s AnnualSeries) Filter(r YearRange) AnnualSeries {
	if r.IsZero() {
		return s
	}
	out := make(AnnualSeries, 0, len(s))
	for _, p := range s {
		if r.Contains(p.Year) {
			out = append(out, p)
		}
	}
	return out
}

// Values returns the series values in year order.
func (s AnnualSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// ValueAt returns the value recorded for year.
func (s AnnualSeries) ValueAt(year int) (float64, bool) {
	for _, p := range s {
		if p.Year == year {
			return p.Value, true
		}
	}
	return 0, false
}
