package handler

import (
	"strings"

	dErrors "askdata/pkg/domain-errors"
	textutil "askdata/pkg/platform/strings"
)

const maxQueryRunes = 500

// QueryRequest is the HTTP request body for POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

func (r *QueryRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *QueryRequest) Validate() error {
	if r.Query == "" {
		return dErrors.New(dErrors.CodeValidation, "query is required")
	}
	if textutil.RuneLen(r.Query) > maxQueryRunes {
		return dErrors.New(dErrors.CodeValidation, "query must be at most 500 characters")
	}
	return nil
}
