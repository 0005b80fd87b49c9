// Package cataloguetest provides small synthetic catalogues for tests.
package cataloguetest

import (
	"askdata/internal/catalogue"
	"askdata/internal/catalogue/models"
)

// Series builds an annual series from consecutive years starting at start.
func Series(start int, values ...float64) models.AnnualSeries {
	out := make(models.AnnualSeries, len(values))
	for i, v := range values {
		out[i] = models.Point{Year: start + i, Value: v}
	}
	return out
}

// Entry builds a catalogue entry with a short default series.
func Entry(code, name, methodology string) catalogue.Entry {
	return catalogue.Entry{
		Indicator: models.Indicator{Code: code, Name: name, Methodology: methodology, Unit: "", Theme: ""},
		Series:    Series(2018, 1, 2, 3),
		Frequency: models.FrequencyAnnual,
	}
}

// Entries returns the indicators used across matcher and resolution tests,
// in catalogue order.
func Entries() []catalogue.Entry {
	return []catalogue.Entry{
		{
			Indicator: models.Indicator{
				Code: "SP.POP.TOTL", Name: "Population, total", Unit: "personnes",
				Methodology: "La population totale est basée sur la définition de facto. Elle compte tous les résidents.",
			},
			Series: Series(2018, 25000000, 25700000, 26400000, 27100000),
		},
		{
			Indicator: models.Indicator{
				Code: "population.P3", Name: "Population totale", Theme: "population", Unit: "milliers",
				Methodology: "Population totale (ANStat).",
			},
			Series: Series(2019, 25700, 26400, 27100),
		},
		{
			Indicator: models.Indicator{
				Code: "SP.POP.GROW", Name: "Croissance de la population (% annuel)", Unit: "%",
				Methodology: "Taux de croissance annuel de la population.",
			},
			Series: Series(2018, 2.6, 2.5, 2.5, 2.4),
		},
		{
			Indicator: models.Indicator{
				Code: "NY.GDP.MKTP.CD", Name: "PIB ($ US courants)", Unit: "USD",
				Methodology: "Le PIB aux prix d'acquisition est la somme de la valeur ajoutée brute de tous les producteurs résidents.",
			},
			Series: Series(2018, 58e9, 58.5e9, 61.3e9, 70e9),
		},
		{
			Indicator: models.Indicator{
				Code: "NY.GDP.MKTP.KD.ZG", Name: "Croissance du PIB (% annuel)", Unit: "%",
				Methodology: "Taux de croissance annuel du PIB aux prix du marché.",
			},
			Series: Series(2018, 4.8, 6.2, 0.7, 7.1),
		},
		{
			Indicator: models.Indicator{
				Code: "FP.CPI.TOTL.ZG", Name: "Inflation, prix à la consommation (% annuel)", Unit: "%",
				Methodology: "L'inflation mesurée par l'indice des prix à la consommation.",
			},
			Series: Series(2018, 0.4, 0.8, 2.4, 4.2, 5.2),
		},
		{
			Indicator: models.Indicator{
				Code: "EG.ELC.ACCS.ZS", Name: "Accès à l'électricité (% de la population)", Unit: "%",
				Methodology: "Pourcentage de la population ayant accès à l'électricité.",
			},
			Series: Series(2018, 67.0, 68.6, 69.9, 71.1),
		},
		{
			Indicator: models.Indicator{
				Code: "SL.UEM.TOTL.ZS", Name: "Chômage, total (% de la population active)", Unit: "%",
				Methodology: "Le chômage désigne la part de la population active sans emploi.",
			},
			Series: Series(2018, 3.3, 3.4, 3.5),
		},
		{
			Indicator: models.Indicator{
				Code: "SP.DYN.LE00.IN", Name: "Espérance de vie à la naissance, total (années)", Unit: "années",
				Methodology: "L'espérance de vie à la naissance indique le nombre d'années qu'un nouveau-né devrait vivre.",
			},
			Series: Series(2018, 57.4, 57.8, 58.1),
		},
		{
			Indicator: models.Indicator{
				Code: "NAT.tofe.recettes_fiscales", Name: "Recettes fiscales (TOFE)", Theme: "tofe", Unit: "Mds FCFA",
				Description: "Total des recettes fiscales collectées par l'État",
			},
			Series: Series(2019, 4200, 4300, 4900),
		},
		{
			Indicator: models.Indicator{
				Code: "NAT.base_eco.pib_nominal_mxof", Name: "PIB nominal (millions XOF)", Theme: "base_eco", Unit: "Millions XOF",
				Description: "Produit intérieur brut à prix courants en millions de francs CFA",
			},
			Series: Series(2019, 35000000, 35800000, 39000000),
		},
	}
}

// Catalogue builds the fixture catalogue.
func Catalogue() *catalogue.Catalogue {
	return catalogue.New(Entries())
}
