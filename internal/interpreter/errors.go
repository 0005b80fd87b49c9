package interpreter

import (
	"errors"
	"fmt"
)

// Category is the failure taxonomy of interpreter calls.
type Category string

const (
	// CategoryTransient covers timeouts, network failures and 5xx replies.
	CategoryTransient Category = "transient"

	// CategoryRateLimited is a per-minute limit; retried on the secondary model.
	CategoryRateLimited Category = "rate_limited"

	// CategoryQuotaExhausted is a zero daily allowance; never retried.
	CategoryQuotaExhausted Category = "quota_exhausted"

	// CategoryMalformed is output that does not decode to a proposal.
	CategoryMalformed Category = "malformed"

	// CategoryAuthentication covers rejected or missing API keys.
	CategoryAuthentication Category = "authentication"
)

// UpstreamError is a categorized interpreter failure.
type UpstreamError struct {
	Category   Category
	Model      string
	StatusCode int
	Message    string
	Underlying error
}

func (e *UpstreamError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("interpreter %s [%s]: %s: %v", e.Model, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("interpreter %s [%s]: %s", e.Model, e.Category, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Underlying
}

// Retryable reports whether another attempt may succeed.
func (e *UpstreamError) Retryable() bool {
	return e.Category == CategoryTransient || e.Category == CategoryRateLimited
}

func newUpstreamError(category Category, model string, status int, message string, underlying error) *UpstreamError {
	return &UpstreamError{Category: category, Model: model, StatusCode: status, Message: message, Underlying: underlying}
}

// CategoryOf extracts the category of err. Errors that are not upstream
// errors are reported as transient.
func CategoryOf(err error) Category {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Category
	}
	return CategoryTransient
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	return false
}
