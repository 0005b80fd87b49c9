package handler

import (
	catalogue "askdata/internal/catalogue/models"
	"askdata/internal/resolution/models"
)

// QueryResponse is the body of POST /api/query.
type QueryResponse struct {
	Success          bool                 `json:"success"`
	Outcome          string               `json:"outcome"`
	Message          string               `json:"message"`
	QueryHash        string               `json:"query_hash"`
	IndicatorCode    string               `json:"indicator_code,omitempty"`
	IndicatorName    string               `json:"indicator_name,omitempty"`
	Unit             string               `json:"unit,omitempty"`
	Source           string               `json:"source,omitempty"`
	SourceLink       string               `json:"source_link,omitempty"`
	MatchType        string               `json:"match_type,omitempty"`
	ProxyExplanation string               `json:"proxy_explanation,omitempty"`
	Data             []catalogue.Point    `json:"data"`
	Calculation      *CalculationResponse `json:"calculation,omitempty"`
	Related          []string             `json:"related_indicators,omitempty"`
	Remaining        int                  `json:"remaining"`
	NeedsCredential  bool                 `json:"needs_credential"`
	Cached           bool                 `json:"cached"`
}

type CalculationResponse struct {
	Type    string  `json:"type"`
	Result  float64 `json:"result"`
	Formula string  `json:"formula,omitempty"`
}

// FromResult converts a resolution result to its wire form.
func FromResult(r *models.Result) QueryResponse {
	resp := QueryResponse{
		Success:          r.Resolved(),
		Outcome:          string(r.Outcome),
		Message:          r.Message,
		QueryHash:        r.QueryHash,
		IndicatorCode:    r.IndicatorCode,
		IndicatorName:    r.IndicatorName,
		Unit:             r.Unit,
		Source:           r.Source,
		SourceLink:       r.SourceLink,
		MatchType:        string(r.MatchType),
		ProxyExplanation: r.ProxyExplanation,
		Data:             []catalogue.Point(r.Data),
		Related:          r.Related,
		Remaining:        r.Remaining,
		NeedsCredential:  r.NeedsCredential,
		Cached:           r.Cached,
	}
	if resp.Data == nil {
		resp.Data = []catalogue.Point{}
	}
	// An undefined result (e.g. a variation from zero) omits the calculation.
	if r.Calculation != nil && r.Calculation.Result != nil {
		resp.Calculation = &CalculationResponse{
			Type:    string(r.Calculation.Kind),
			Result:  *r.Calculation.Result,
			Formula: r.Calculation.Formula,
		}
	}
	return resp
}
