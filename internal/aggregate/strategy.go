package aggregate

import (
	"fmt"
	"strings"
)

// Strategy converts sub-annual values of one year into a single annual value.
type Strategy string

const (
	StrategyAverage Strategy = "average"
	StrategySum     Strategy = "sum"
	StrategyLast    Strategy = "last"
)

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyAverage, StrategySum, StrategyLast:
		return true
	}
	return false
}

// ParseStrategy accepts the canonical names plus the short forms used in
// seed files ("avg").
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "average", "avg", "mean":
		return StrategyAverage, nil
	case "sum":
		return StrategySum, nil
	case "last", "lastofperiod", "last_of_period":
		return StrategyLast, nil
	}
	return "", fmt.Errorf("unknown aggregation strategy %q", s)
}

// Override maps a code fragment to a strategy. A fragment applies when it is
// contained anywhere in the code.
type Override struct {
	Fragment string
	Strategy Strategy
}

// Table resolves the strategy of an indicator from its code and theme.
// Overrides are checked in order, first match wins; then the theme default;
// then average.
type Table struct {
	overrides []Override
	themes    map[string]Strategy
}

// NewTable builds a strategy table. The override order is significant.
func NewTable(overrides []Override, themes map[string]Strategy) (*Table, error) {
	for _, o := range overrides {
		if o.Fragment == "" {
			return nil, fmt.Errorf("override fragment is required")
		}
		if !o.Strategy.IsValid() {
			return nil, fmt.Errorf("override %q: invalid strategy %q", o.Fragment, o.Strategy)
		}
	}
	copied := make(map[string]Strategy, len(themes))
	for theme, s := range themes {
		if !s.IsValid() {
			return nil, fmt.Errorf("theme %q: invalid strategy %q", theme, s)
		}
		copied[theme] = s
	}
	return &Table{
		overrides: append([]Override(nil), overrides...),
		themes:    copied,
	}, nil
}

// DefaultTable returns the table used for the ANStat and national sources.
func DefaultTable() *Table {
	t, err := NewTable(DefaultOverrides(), DefaultThemeStrategies())
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the strategy for an indicator.
func (t *Table) Resolve(code, theme string) Strategy {
	for _, o := range t.overrides {
		if strings.Contains(code, o.Fragment) {
			return o.Strategy
		}
	}
	if s, ok := t.themes[theme]; ok {
		return s
	}
	return StrategyAverage
}

// DefaultOverrides lists code fragments whose economics disagree with their
// file's theme: flows inside stock files, rates inside flow files.
func DefaultOverrides() []Override {
	return []Override{
		// Direct investment flows
		{Fragment: "BFDA", Strategy: StrategySum},
		{Fragment: "BFDL", Strategy: StrategySum},
		// Interest rates, exchange rates, indices
		{Fragment: "ENDA_", Strategy: StrategyAverage},
		{Fragment: "ENDE_", Strategy: StrategyAverage},
		{Fragment: "ESNA_", Strategy: StrategyAverage},
		{Fragment: "FILR_", Strategy: StrategyAverage},
		{Fragment: "FIDR_", Strategy: StrategyAverage},
		{Fragment: "FII_", Strategy: StrategyAverage},
		{Fragment: "FIMM_", Strategy: StrategyAverage},
		{Fragment: "FPOLM_", Strategy: StrategyAverage},
		// Reserves at end of year
		{Fragment: "MAU_RAFA", Strategy: StrategyLast},
		{Fragment: "MAU_RAGO", Strategy: StrategyLast},
		{Fragment: "MAU_RASD", Strategy: StrategyLast},
		// Debt stocks
		{Fragment: "GGD", Strategy: StrategyLast},
		{Fragment: "GGD_", Strategy: StrategyLast},
		// Monetary stocks
		{Fragment: "FASF_", Strategy: StrategyLast},
		{Fragment: "FASMB_", Strategy: StrategyLast},
		{Fragment: "FDSF_", Strategy: StrategyLast},
		{Fragment: "FDSB_", Strategy: StrategyLast},
		{Fragment: "FDSAD_", Strategy: StrategyLast},
		{Fragment: "FDSDG_", Strategy: StrategyLast},
		{Fragment: "FDSAO_", Strategy: StrategyLast},
		{Fragment: "FASAF_", Strategy: StrategyLast},
		{Fragment: "FASLF_", Strategy: StrategyLast},
		{Fragment: "FASG_", Strategy: StrategyLast},
		{Fragment: "FASAO_", Strategy: StrategyLast},
		{Fragment: "FDSAF_", Strategy: StrategyLast},
		{Fragment: "FDSLF_", Strategy: StrategyLast},
		// Budget ratios to GDP
		{Fragment: "_GDP", Strategy: StrategyAverage},
	}
}

// DefaultThemeStrategies maps source themes to their default strategy.
// Themes not listed average.
func DefaultThemeStrategies() map[string]Strategy {
	return map[string]Strategy{
		"reserves":           StrategyLast,
		"balance_paiements":  StrategySum,
		"commerce":           StrategySum,
		"dette_admin":        StrategyLast,
		"dette_ext":          StrategyLast,
		"social":             StrategyAverage,
		"production":         StrategyAverage,
		"ipc":                StrategyAverage,
		"ipp":                StrategyAverage,
		"emploi":             StrategySum,
		"tofe_sdmx":          StrategySum,
		"admin_publiques":    StrategySum,
		"population":         StrategyAverage,
		"position_ext":       StrategyLast,
		"banque_centrale":    StrategyLast,
		"institutions_depot": StrategyLast,
		"taux_change":        StrategyAverage,
		"taux_interet":       StrategyAverage,
	}
}
