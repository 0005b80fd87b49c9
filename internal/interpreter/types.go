// Package interpreter asks a hosted language model to map a question onto
// a catalogue indicator.
//
// The model is untrusted: every reply is decoded against a strict shape and
// anything else is reported as a malformed UpstreamError. Calls are bounded
// per attempt, retried with exponential backoff on transient failures, and
// moved to a lighter model after the first rate-limit reply.
package interpreter

import (
	"askdata/internal/catalogue/models"
)

// MatchType classifies a proposal.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchProxy MatchType = "proxy"
)

// Request is a first-pass interpretation request.
type Request struct {
	Query string
	// Candidates are prompt lines "code|name|description".
	Candidates []string
	Hints      []string
	// APIKey overrides the server key for this call.
	APIKey string
}

// Proposal is the decoded first-pass reply.
type Proposal struct {
	Success          bool
	IndicatorCode    string
	MatchType        MatchType
	ProxyExplanation string
	StartYear        *int
	EndYear          *int
	Calculation      string
	Message          string
}

// ExplainRequest asks for a narrative over a resolved series.
type ExplainRequest struct {
	Query         string
	IndicatorName string
	Unit          string
	Series        models.AnnualSeries
	Calculation   string
	Result        *float64
	APIKey        string
}

// Explanation is the decoded second-pass reply.
type Explanation struct {
	Message string
	Related []string
}
