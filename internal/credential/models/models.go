package models

import (
	"strings"
	"time"
	"unicode"

	dErrors "askdata/pkg/domain-errors"
)

const (
	minKeyLen = 16
	maxKeyLen = 256
	hintLen   = 4
)

// Credential is a caller's sealed interpreter API key. The plaintext is never
// stored; Hint keeps the last characters for display.
type Credential struct {
	Identity  string
	Sealed    []byte
	Hint      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseAPIKey trims and validates a raw API key.
func ParseAPIKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", dErrors.New(dErrors.CodeValidation, "api_key is required")
	}
	if len(key) < minKeyLen || len(key) > maxKeyLen {
		return "", dErrors.New(dErrors.CodeValidation, "api_key length is invalid")
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return "", dErrors.New(dErrors.CodeValidation, "api_key must not contain whitespace")
	}
	return key, nil
}

// Hint returns the displayable suffix of key.
func Hint(key string) string {
	if len(key) <= hintLen {
		return ""
	}
	return "…" + key[len(key)-hintLen:]
}
