package models

import (
	"strings"

	catalogue "askdata/internal/catalogue/models"
	"askdata/pkg/domain"
)

// Outcome is the terminal state of a resolution.
type Outcome string

const (
	OutcomeResolved      Outcome = "resolved"
	OutcomeUnresolved    Outcome = "unresolved"
	OutcomeUnavailable   Outcome = "unavailable"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
)

// Tier names the stage that produced a resolution.
type Tier string

const (
	TierCache       Tier = "cache"
	TierDirect      Tier = "direct"
	TierInterpreter Tier = "interpreter"
	TierMatcher     Tier = "matcher"
)

// MatchType classifies a resolved indicator against the question.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchProxy MatchType = "proxy"
)

// CalculationKind is a requested computation over the series.
type CalculationKind string

const (
	CalculationAverage   CalculationKind = "average"
	CalculationVariation CalculationKind = "variation"
	CalculationSum       CalculationKind = "sum"
)

var calculationAliases = map[string]CalculationKind{
	"average":   CalculationAverage,
	"moyenne":   CalculationAverage,
	"moyen":     CalculationAverage,
	"variation": CalculationVariation,
	"évolution": CalculationVariation,
	"evolution": CalculationVariation,
	"sum":       CalculationSum,
	"somme":     CalculationSum,
	"cumul":     CalculationSum,
}

// ParseCalculation maps an English or French name to a kind.
func ParseCalculation(s string) (CalculationKind, bool) {
	k, ok := calculationAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// Calculation is a computed value. Result is nil when the computation is
// undefined for the series (variation from zero, too few points).
type Calculation struct {
	Kind    CalculationKind
	Result  *float64
	Formula string
}

// Request is one question from one caller.
type Request struct {
	Query    string
	Identity domain.Identity
}

// Result is what the caller sees.
type Result struct {
	Outcome          Outcome
	Tier             Tier
	Message          string
	QueryHash        string
	IndicatorCode    string
	IndicatorName    string
	Unit             string
	Source           string
	SourceLink       string
	MatchType        MatchType
	ProxyExplanation string
	Data             catalogue.AnnualSeries
	Calculation      *Calculation
	Related          []string
	// Remaining is the caller's quota after this request; -1 when unbounded.
	Remaining       int
	NeedsCredential bool
	Cached          bool
}

// Resolved reports whether the result carries data.
func (r *Result) Resolved() bool {
	return r.Outcome == OutcomeResolved
}
