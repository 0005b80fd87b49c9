package handler

import "askdata/internal/catalogue/models"

type IndicatorResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Theme       string `json:"theme,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	SourceLink  string `json:"source_link,omitempty"`
	National    bool   `json:"national"`
}

type ListResponse struct {
	Count      int                 `json:"count"`
	Indicators []IndicatorResponse `json:"indicators"`
}

type DetailResponse struct {
	IndicatorResponse
	Methodology string         `json:"methodology,omitempty"`
	Frequency   string         `json:"frequency,omitempty"`
	Data        []models.Point `json:"data"`
}

type RelatedResponse struct {
	Code    string   `json:"code"`
	Related []string `json:"related_indicators"`
}

func toIndicatorResponse(ind models.Indicator) IndicatorResponse {
	return IndicatorResponse{
		Code:        ind.Code,
		Name:        ind.Name,
		Theme:       ind.Theme,
		Unit:        ind.Unit,
		Description: ind.Description,
		Source:      ind.Provider,
		SourceLink:  ind.SourceLink,
		National:    ind.Source.IsNational(),
	}
}
