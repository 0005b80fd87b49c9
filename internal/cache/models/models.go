package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	textutil "askdata/pkg/platform/strings"
)

// Feedback is a user vote on a cached answer.
type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// ParseFeedback validates a feedback value.
func ParseFeedback(s string) (Feedback, error) {
	switch f := Feedback(s); f {
	case FeedbackPositive, FeedbackNegative:
		return f, nil
	}
	return "", fmt.Errorf("invalid feedback %q", s)
}

// Key returns the cache key of a query: hex SHA-256 of the case-folded,
// trimmed text.
func Key(query string) string {
	sum := sha256.Sum256([]byte(textutil.Fold(query)))
	return hex.EncodeToString(sum[:])
}

// Entry is a memoized resolution. Payload is an opaque snapshot of the
// answer, not a reference to live catalogue data.
type Entry struct {
	Key         string
	Query       string
	Payload     []byte
	Positive    int
	Negative    int
	Invalidated bool
	HitCount    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEntry creates a fresh entry for a successful resolution.
func NewEntry(key, query string, payload []byte, now time.Time) *Entry {
	return &Entry{
		Key:       key,
		Query:     query,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Trusted reports whether the entry may be served from cache.
func (e *Entry) Trusted() bool {
	if e.Invalidated {
		return false
	}
	return !(e.Negative > 0 && e.Negative >= e.Positive)
}

// RecordHit counts one served hit. Trust is unaffected.
func (e *Entry) RecordHit(now time.Time) {
	e.HitCount++
	e.UpdatedAt = now
}

// ApplyFeedback records a vote. Negative feedback that makes the entry
// untrusted invalidates it until the next Reset. It reports whether this vote
// invalidated the entry.
func (e *Entry) ApplyFeedback(f Feedback, now time.Time) bool {
	e.UpdatedAt = now
	switch f {
	case FeedbackPositive:
		e.Positive++
		return false
	case FeedbackNegative:
		e.Negative++
		if !e.Invalidated && e.Negative >= e.Positive {
			e.Invalidated = true
			return true
		}
	}
	return false
}

// Reset replaces the payload after a fresh resolution and clears feedback.
// The hit count and creation time are kept.
func (e *Entry) Reset(query string, payload []byte, now time.Time) {
	e.Query = query
	e.Payload = append([]byte(nil), payload...)
	e.Positive = 0
	e.Negative = 0
	e.Invalidated = false
	e.UpdatedAt = now
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	return &c
}
