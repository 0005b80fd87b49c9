package service

import (
	"encoding/json"
	"fmt"

	catalogue "askdata/internal/catalogue/models"
	"askdata/internal/resolution/models"
)

// cachedAnswer is the snapshot stored in the response cache. It holds no
// per-caller fields.
type cachedAnswer struct {
	Tier             models.Tier            `json:"tier"`
	Message          string                 `json:"message"`
	IndicatorCode    string                 `json:"indicator_code"`
	IndicatorName    string                 `json:"indicator_name"`
	Unit             string                 `json:"unit,omitempty"`
	Source           string                 `json:"source,omitempty"`
	SourceLink       string                 `json:"source_link,omitempty"`
	MatchType        models.MatchType       `json:"match_type"`
	ProxyExplanation string                 `json:"proxy_explanation,omitempty"`
	Data             catalogue.AnnualSeries `json:"data"`
	Calculation      *cachedCalculation     `json:"calculation,omitempty"`
	Related          []string               `json:"related_indicators,omitempty"`
}

type cachedCalculation struct {
	Kind    models.CalculationKind `json:"type"`
	Result  *float64               `json:"result"`
	Formula string                 `json:"formula,omitempty"`
}

func encodeAnswer(r *models.Result) ([]byte, error) {
	a := cachedAnswer{
		Tier:             r.Tier,
		Message:          r.Message,
		IndicatorCode:    r.IndicatorCode,
		IndicatorName:    r.IndicatorName,
		Unit:             r.Unit,
		Source:           r.Source,
		SourceLink:       r.SourceLink,
		MatchType:        r.MatchType,
		ProxyExplanation: r.ProxyExplanation,
		Data:             r.Data,
		Related:          r.Related,
	}
	if r.Calculation != nil {
		a.Calculation = &cachedCalculation{Kind: r.Calculation.Kind, Result: r.Calculation.Result, Formula: r.Calculation.Formula}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode cached answer: %w", err)
	}
	return data, nil
}

func decodeAnswer(key string, payload []byte) (*models.Result, error) {
	var a cachedAnswer
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode cached answer: %w", err)
	}
	r := &models.Result{
		Outcome:          models.OutcomeResolved,
		Tier:             models.TierCache,
		Message:          a.Message,
		QueryHash:        key,
		IndicatorCode:    a.IndicatorCode,
		IndicatorName:    a.IndicatorName,
		Unit:             a.Unit,
		Source:           a.Source,
		SourceLink:       a.SourceLink,
		MatchType:        a.MatchType,
		ProxyExplanation: a.ProxyExplanation,
		Data:             a.Data,
		Related:          a.Related,
		Cached:           true,
	}
	if a.Calculation != nil {
		r.Calculation = &models.Calculation{Kind: a.Calculation.Kind, Result: a.Calculation.Result, Formula: a.Calculation.Formula}
	}
	return r, nil
}
