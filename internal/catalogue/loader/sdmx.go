package loader

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"askdata/internal/aggregate"
	"askdata/internal/catalogue/models"
)

// DefaultFileThemes maps the SDMX exports of the national statistics office
// to their theme.
func DefaultFileThemes() map[string]string {
	return map[string]string{
		"Avoirs de réserves officielles.xml":           "reserves",
		"Balance des paiements.xml":                    "balance_paiements",
		"Commerce des marchandises.xml":                "commerce",
		"Dette brute de l’administration centrale.xml": "dette_admin",
		"Dette extérieure.xml":                         "dette_ext",
		"Indicateurs sociaux démographiques.xml":       "social",
		"Indice de production.xml":                     "production",
		"Indice des prix à la consommation.xml":        "ipc",
		"Indice des prix à la production.xml":          "ipp",
		"Marché du travail.xml":                        "emploi",
		"Opérations de l’administration centrale.xml":  "tofe_sdmx",
		"Opérations des administrations publiques.xml": "admin_publiques",
		"Population.xml":                               "population",
		"Position extérieure globale.xml":              "position_ext",
		"Situation de la banque centrale.xml":          "banque_centrale",
		"Situation des institutions de dépôt.xml":      "institutions_depot",
		"Taux de change.xml":                           "taux_change",
		"Taux d’intérêt.xml":                           "taux_interet",
	}
}

// parseSDMX streams a generic or structure-specific SDMX-ML file. Series
// elements carry INDICATOR, NOMFR_INDICATOR (or NOM_INDICATOR) and FREQ; Obs
// elements carry TIME_PERIOD and OBS_VALUE. Codes become "<theme>.<INDICATOR>".
func parseSDMX(data []byte, theme string) (fileResult, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	type pending struct {
		indicator models.Indicator
		byFreq    map[models.Frequency][]models.RawObservation
	}
	var (
		res     fileResult
		order   []string
		byCode  = make(map[string]*pending)
		current *pending
		freq    models.Frequency
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fileResult{}, fmt.Errorf("decode sdmx: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "Series":
				attrs := attrMap(el.Attr)
				raw := strings.TrimSpace(attrs["INDICATOR"])
				if raw == "" {
					current = nil
					res.skippedIndicators++
					continue
				}
				freq = models.Frequency(strings.ToUpper(attrs["FREQ"]))
				if freq == "" {
					freq = models.FrequencyAnnual
				}
				code := theme + "." + raw
				p, ok := byCode[code]
				if !ok {
					p = &pending{
						indicator: models.Indicator{Code: code, Theme: theme},
						byFreq:    make(map[models.Frequency][]models.RawObservation),
					}
					byCode[code] = p
					order = append(order, code)
				}
				if p.indicator.Name == "" {
					p.indicator.Name = firstNonEmpty(attrs["NOMFR_INDICATOR"], attrs["NOM_INDICATOR"])
				}
				if p.indicator.Unit == "" {
					p.indicator.Unit = firstNonEmpty(attrs["UNIT_MEASURE"], attrs["UNIT"])
				}
				current = p
			case "Obs":
				if current == nil {
					continue
				}
				attrs := attrMap(el.Attr)
				obs, ok := sdmxObservation(attrs["TIME_PERIOD"], attrs["OBS_VALUE"], freq)
				if !ok {
					res.droppedRows++
					continue
				}
				current.byFreq[freq] = append(current.byFreq[freq], obs)
			}
		case xml.EndElement:
			if el.Name.Local == "Series" {
				current = nil
			}
		}
	}

	for _, code := range order {
		p := byCode[code]
		if p.indicator.Name == "" {
			p.indicator.Name = strings.TrimPrefix(code, theme+".")
		}
		res.datasets = append(res.datasets, models.Dataset{
			Indicator: p.indicator,
			Variants:  orderedVariants(p.byFreq),
		})
	}
	return res, nil
}

// sdmxObservation parses one Obs. The period must agree with the series
// frequency; a monthly series reporting "2020-Q1" is malformed.
func sdmxObservation(period, value string, freq models.Frequency) (models.RawObservation, bool) {
	year, sub, parsed, err := aggregate.ParsePeriod(period)
	if err != nil || parsed != freq {
		return models.RawObservation{}, false
	}
	v, ok := parseValue(value)
	if !ok {
		return models.RawObservation{}, false
	}
	return models.RawObservation{Year: year, SubPeriod: sub, Value: v}, true
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
