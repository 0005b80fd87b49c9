package loader

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"askdata/internal/aggregate"
	"askdata/internal/catalogue/models"
)

// seedFile is the YAML seed format for curated and national tables.
//
//	theme: tofe
//	national: true
//	provider: DGTCP
//	indicators:
//	  - key: recettes_fiscales
//	    name: Recettes fiscales
//	    unit: Mds FCFA
//	    observations:
//	      "2019": 3500
//	      "2020-Q1": 820
//
// An indicator sets either code (used verbatim) or key. Keys are prefixed with
// "NAT.<theme>." for national files and "<theme>." otherwise.
type seedFile struct {
	Theme      string          `yaml:"theme"`
	National   bool            `yaml:"national"`
	Provider   string          `yaml:"provider"`
	SourceLink string          `yaml:"source_link"`
	Indicators []seedIndicator `yaml:"indicators"`
}

type seedIndicator struct {
	Code        string `yaml:"code"`
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Theme       string `yaml:"theme"`
	Unit        string `yaml:"unit"`
	Description string `yaml:"description"`
	Methodology string `yaml:"methodology"`
	Provider    string `yaml:"provider"`
	// Observations is kept as a node so that one bad value only drops its
	// own row.
	Observations yaml.Node `yaml:"observations"`
}

func (f seedFile) code(ind seedIndicator) string {
	if c := strings.TrimSpace(ind.Code); c != "" {
		return c
	}
	key := strings.TrimSpace(ind.Key)
	if key == "" {
		return ""
	}
	if f.National {
		return models.NationalPrefix + f.Theme + "." + key
	}
	if f.Theme == "" {
		return key
	}
	return f.Theme + "." + key
}

func parseYAML(data []byte) (fileResult, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fileResult{}, fmt.Errorf("decode yaml: %w", err)
	}

	var res fileResult
	for _, ind := range f.Indicators {
		code := f.code(ind)
		if code == "" || strings.TrimSpace(ind.Name) == "" {
			res.skippedIndicators++
			continue
		}
		theme := ind.Theme
		if theme == "" {
			theme = f.Theme
		}
		provider := ind.Provider
		if provider == "" {
			provider = f.Provider
		}

		variants, dropped := seedVariants(&ind.Observations)
		res.droppedRows += dropped
		res.datasets = append(res.datasets, models.Dataset{
			Indicator: models.Indicator{
				Code:        code,
				Name:        strings.TrimSpace(ind.Name),
				Theme:       theme,
				Unit:        ind.Unit,
				Description: ind.Description,
				Methodology: ind.Methodology,
				Provider:    provider,
				SourceLink:  f.SourceLink,
			},
			Variants: variants,
		})
	}
	return res, nil
}

// seedVariants reads a period → value mapping. Variants come out in A, Q, M
// order and observations keep file order.
func seedVariants(node *yaml.Node) ([]models.Variant, int) {
	if node.Kind != yaml.MappingNode {
		if node.Kind == 0 {
			return nil, 0
		}
		return nil, 1
	}

	byFreq := make(map[models.Frequency][]models.RawObservation)
	dropped := 0
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		year, sub, freq, err := aggregate.ParsePeriod(k.Value)
		if err != nil || v.Kind != yaml.ScalarNode {
			dropped++
			continue
		}
		value, ok := parseValue(v.Value)
		if !ok {
			dropped++
			continue
		}
		byFreq[freq] = append(byFreq[freq], models.RawObservation{Year: year, SubPeriod: sub, Value: value})
	}
	return orderedVariants(byFreq), dropped
}

func orderedVariants(byFreq map[models.Frequency][]models.RawObservation) []models.Variant {
	var out []models.Variant
	for _, freq := range []models.Frequency{models.FrequencyAnnual, models.FrequencyQuarterly, models.FrequencyMonthly} {
		if obs, ok := byFreq[freq]; ok {
			out = append(out, models.Variant{Frequency: freq, Observations: obs})
		}
	}
	return out
}

// parseValue accepts plain numbers and the comma decimal separator used in
// the national spreadsheets.
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), "\u00a0", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
