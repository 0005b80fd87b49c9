// Package sentinel holds the infrastructure errors stores return, optionally
// wrapped. Services translate them into domain errors; validation failures
// use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	// ErrNotFound means no record exists for the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means optimistic retries ran out against concurrent writers.
	ErrConflict = errors.New("conflict")
)
