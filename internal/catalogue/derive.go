package catalogue

import (
	"math"

	"askdata/internal/aggregate"
	"askdata/internal/catalogue/models"
)

// Derivation computes a ratio series from two catalogue series:
// numerator / (denominator / DenominatorScale) * 100, over common years.
type Derivation struct {
	Indicator        models.Indicator
	Numerator        string
	Denominator      string
	DenominatorScale float64
	// Decimals sets the rounding of derived values.
	Decimals int
}

// DefaultDerivations returns the fiscal ratios computed from the national
// finance tables. The fiscal series are in billions of FCFA and nominal GDP
// in millions, hence the 1000 scale.
func DefaultDerivations() []Derivation {
	const pib = "NAT.base_eco.pib_nominal_mxof"
	return []Derivation{
		{
			Indicator: models.Indicator{
				Code:        "NAT.tofe.pression_fiscale",
				Name:        "Pression fiscale (% du PIB)",
				Theme:       "tofe",
				Unit:        "%",
				Description: "Ratio des recettes fiscales rapportées au PIB nominal. Indicateur clé de mobilisation des ressources internes.",
			},
			Numerator:        "NAT.tofe.recettes_fiscales",
			Denominator:      pib,
			DenominatorScale: 1000,
			Decimals:         1,
		},
		{
			Indicator: models.Indicator{
				Code:        "NAT.tofe.solde_budgetaire_pct_pib",
				Name:        "Solde budgétaire (% du PIB)",
				Theme:       "tofe",
				Unit:        "%",
				Description: "Solde budgétaire global rapporté au PIB nominal. Un solde négatif indique un déficit budgétaire.",
			},
			Numerator:        "NAT.tofe.solde_budgetaire",
			Denominator:      pib,
			DenominatorScale: 1000,
			Decimals:         1,
		},
	}
}

// Ratio computes the derived series. Years where the scaled denominator is
// not positive are skipped.
func (d Derivation) Ratio(num, den models.AnnualSeries) models.AnnualSeries {
	scale := d.DenominatorScale
	if scale == 0 {
		scale = 1
	}
	pow := math.Pow(10, float64(d.Decimals))

	out := make(models.AnnualSeries, 0, len(num))
	for _, p := range num {
		dv, ok := den.ValueAt(p.Year)
		if !ok || dv <= 0 {
			continue
		}
		v := p.Value / (dv / scale) * 100
		out = append(out, models.Point{Year: p.Year, Value: math.Round(v*pow) / pow})
	}
	return out
}

func derive(entries []Entry, derivations []Derivation) []Entry {
	if len(derivations) == 0 {
		return nil
	}
	byCode := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if _, ok := byCode[e.Indicator.Code]; !ok {
			byCode[e.Indicator.Code] = e
		}
	}

	var out []Entry
	for _, d := range derivations {
		if _, exists := byCode[d.Indicator.Code]; exists {
			continue
		}
		num, okNum := byCode[d.Numerator]
		den, okDen := byCode[d.Denominator]
		if !okNum || !okDen {
			continue
		}
		series := d.Ratio(num.Series, den.Series)
		if len(series) < aggregate.MinUsablePoints {
			continue
		}
		ind := d.Indicator
		if ind.Provider == "" {
			ind.Provider = num.Indicator.Provider
		}
		if ind.Methodology == "" {
			ind.Methodology = num.Indicator.Methodology
		}
		out = append(out, Entry{Indicator: ind, Series: series, Frequency: models.FrequencyAnnual})
	}
	return out
}
