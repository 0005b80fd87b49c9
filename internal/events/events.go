// Package events defines the domain events emitted by the query pipeline and
// the publishers that deliver them.
package events

import (
	"context"
	"strings"
	"time"
)

// Type names an event.
type Type string

const (
	TypeQueryResolved     Type = "query.resolved"
	TypeQueryUnresolved   Type = "query.unresolved"
	TypeQueryUnavailable  Type = "query.unavailable"
	TypeFeedbackRecorded  Type = "feedback.recorded"
	TypeCacheInvalidated  Type = "feedback.invalidated"
	TypeQuotaExceeded     Type = "quota.exceeded"
	TypeCredentialChanged Type = "credential.changed"
)

// Family returns the part of the type before the first '.', used to route
// events to topics.
func (t Type) Family() string {
	head, _, _ := strings.Cut(string(t), ".")
	return head
}

// Event is one occurrence. Key is the partition key (query hash or identity).
type Event struct {
	Type       Type              `json:"type"`
	Key        string            `json:"key"`
	Identity   string            `json:"identity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publisher delivers events. Implementations must not block the caller on
// broker availability for longer than the context allows.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emit publishes event when p is non-nil. Publish errors are returned for
// logging; they never change the outcome of the operation that emitted them.
func Emit(ctx context.Context, p Publisher, event Event) error {
	if p == nil {
		return nil
	}
	return p.Publish(ctx, event)
}
