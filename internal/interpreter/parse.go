package interpreter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	minYear = 1900
	maxYear = 2100
)

// stripFences removes a surrounding markdown code block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type proposalReply struct {
	Success          *bool   `json:"success"`
	IndicatorCode    *string `json:"indicator_code"`
	MatchType        *string `json:"match_type"`
	ProxyExplanation *string `json:"proxy_explanation"`
	StartYear        *int    `json:"start_year"`
	EndYear          *int    `json:"end_year"`
	Calculation      *string `json:"calculation_requested"`
	Message          *string `json:"message"`
}

func parseProposal(raw, model string) (Proposal, error) {
	var r proposalReply
	if err := decodeStrict(raw, &r); err != nil {
		return Proposal{}, newUpstreamError(CategoryMalformed, model, 0, "reply is not a proposal", err)
	}
	if r.Success == nil {
		return Proposal{}, newUpstreamError(CategoryMalformed, model, 0, "reply has no success field", nil)
	}

	p := Proposal{Success: *r.Success, Message: deref(r.Message)}
	if !p.Success {
		return p, nil
	}

	p.IndicatorCode = strings.TrimSpace(deref(r.IndicatorCode))
	if p.IndicatorCode == "" {
		return Proposal{}, newUpstreamError(CategoryMalformed, model, 0, "successful reply without indicator_code", nil)
	}

	switch MatchType(strings.ToLower(strings.TrimSpace(deref(r.MatchType)))) {
	case "", MatchExact:
		p.MatchType = MatchExact
	case MatchProxy:
		p.MatchType = MatchProxy
	default:
		return Proposal{}, newUpstreamError(CategoryMalformed, model, 0, fmt.Sprintf("unknown match_type %q", deref(r.MatchType)), nil)
	}
	p.ProxyExplanation = strings.TrimSpace(deref(r.ProxyExplanation))
	if p.MatchType == MatchProxy && p.ProxyExplanation == "" {
		return Proposal{}, newUpstreamError(CategoryMalformed, model, 0, "proxy match without explanation", nil)
	}

	p.StartYear = validYear(r.StartYear)
	p.EndYear = validYear(r.EndYear)
	if p.StartYear != nil && p.EndYear != nil && *p.StartYear > *p.EndYear {
		p.StartYear, p.EndYear = p.EndYear, p.StartYear
	}
	p.Calculation = strings.ToLower(strings.TrimSpace(deref(r.Calculation)))
	return p, nil
}

type explanationReply struct {
	Message string   `json:"message"`
	Related []string `json:"related_indicators"`
}

func parseExplanation(raw, model string) (Explanation, error) {
	var r explanationReply
	if err := decodeStrict(raw, &r); err != nil {
		return Explanation{}, newUpstreamError(CategoryMalformed, model, 0, "reply is not an explanation", err)
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		return Explanation{}, newUpstreamError(CategoryMalformed, model, 0, "explanation is empty", nil)
	}
	related := make([]string, 0, len(r.Related))
	for _, name := range r.Related {
		if name = strings.TrimSpace(name); name != "" {
			related = append(related, name)
		}
	}
	return Explanation{Message: msg, Related: related}, nil
}

func decodeStrict(raw string, v any) error {
	body := stripFences(raw)
	if body == "" {
		return fmt.Errorf("empty reply")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON object")
	}
	return nil
}

func validYear(y *int) *int {
	if y == nil || *y < minYear || *y > maxYear {
		return nil
	}
	v := *y
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
