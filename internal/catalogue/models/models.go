package models

import (
	"strings"
)

// NationalPrefix marks codes backed by national administrative sources,
// e.g. "NAT.tofe.recettes_fiscales".
const NationalPrefix = "NAT."

// SourceKind distinguishes the international statistical catalogue from
// national administrative series.
type SourceKind string

const (
	SourceStandard SourceKind = "standard"
	SourceNational SourceKind = "national"
)

// Source is resolved once from the indicator code when the catalogue is built.
// Category is set for national sources only ("tofe", "douanes", ...).
type Source struct {
	Kind     SourceKind
	Category string
}

// Standard returns the source of international catalogue indicators.
func Standard() Source {
	return Source{Kind: SourceStandard}
}

// National returns the source of a national administrative category.
func National(category string) Source {
	return Source{Kind: SourceNational, Category: category}
}

// IsNational reports whether the source is a national category.
func (s Source) IsNational() bool {
	return s.Kind == SourceNational
}

// ParseSource derives the source from a code. "NAT.tofe.x" is National("tofe");
// a "NAT." code without a category is still national with an empty category.
func ParseSource(code string) Source {
	rest, ok := strings.CutPrefix(code, NationalPrefix)
	if !ok {
		return Standard()
	}
	category, _, _ := strings.Cut(rest, ".")
	return National(category)
}

// Indicator is an immutable catalogue entry.
type Indicator struct {
	Code        string
	Name        string
	Theme       string
	Unit        string
	Description string
	Methodology string
	Provider    string
	SourceLink  string
	Source      Source
}

// Frequency is the declared periodicity of a raw observation variant.
type Frequency string

const (
	FrequencyAnnual    Frequency = "A"
	FrequencyQuarterly Frequency = "Q"
	FrequencyMonthly   Frequency = "M"
)

// IsValid reports whether f is a supported frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyAnnual, FrequencyQuarterly, FrequencyMonthly:
		return true
	}
	return false
}

// MaxSubPeriod returns the highest sub-period index for f (0 for annual).
func (f Frequency) MaxSubPeriod() int {
	switch f {
	case FrequencyQuarterly:
		return 4
	case FrequencyMonthly:
		return 12
	}
	return 0
}

// RawObservation is one source value. SubPeriod is 0 for annual data, else a
// month (1-12) or quarter (1-4).
type RawObservation struct {
	Year      int
	SubPeriod int
	Value     float64
}

// Variant groups the raw observations of one indicator at one frequency.
type Variant struct {
	Frequency    Frequency
	Observations []RawObservation
}

// Dataset is what a catalogue loader hands over for one indicator.
type Dataset struct {
	Indicator Indicator
	Variants  []Variant
}
