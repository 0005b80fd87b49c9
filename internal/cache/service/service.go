// Package service implements the response cache and its feedback-driven
// trust state.
//
// An entry is served only while it is trusted: not invalidated, and not
// holding at least as many negative as positive votes (with at least one
// negative). A negative vote that crosses that line invalidates the entry
// until the next fresh resolution overwrites it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"askdata/internal/cache/metrics"
	"askdata/internal/cache/models"
	"askdata/internal/cache/ports"
	"askdata/internal/events"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	Store     = ports.Store
	Publisher = ports.Publisher
)

// FeedbackResult reports the state of an entry after a vote.
type FeedbackResult struct {
	Key         string
	Invalidated bool
	// BecameInvalidated is set when this vote invalidated the entry.
	BecameInvalidated bool
	Positive          int
	Negative          int
}

type Service struct {
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Lookup returns the trusted entry for query and counts the hit. It returns
// (nil, nil) on a miss or when the entry is not trusted.
func (s *Service) Lookup(ctx context.Context, query string) (*models.Entry, error) {
	key := models.Key(query)
	now := requestcontext.Now(ctx)

	untrusted := false
	entry, err := s.store.Update(ctx, key, func(current *models.Entry) (*models.Entry, error) {
		untrusted = false
		if current == nil {
			return nil, nil
		}
		if !current.Trusted() {
			untrusted = true
			return nil, nil
		}
		current.RecordHit(now)
		return current, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up cached answer")
	}

	switch {
	case entry != nil:
		s.metrics.IncrementLookup("hit")
	case untrusted:
		s.metrics.IncrementLookup("untrusted")
	default:
		s.metrics.IncrementLookup("miss")
	}
	return entry, nil
}

// Upsert stores a fresh resolution, resetting feedback for the query.
func (s *Service) Upsert(ctx context.Context, query string, payload []byte) (*models.Entry, error) {
	if len(payload) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cache payload is required")
	}
	key := models.Key(query)
	now := requestcontext.Now(ctx)

	entry, err := s.store.Update(ctx, key, func(current *models.Entry) (*models.Entry, error) {
		if current == nil {
			return models.NewEntry(key, query, payload, now), nil
		}
		current.Reset(query, payload, now)
		return current, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store answer")
	}
	s.metrics.IncrementUpsert()
	return entry, nil
}

// RecordFeedback applies a vote to the entry with the given key.
func (s *Service) RecordFeedback(ctx context.Context, key string, feedback models.Feedback) (*FeedbackResult, error) {
	if _, err := models.ParseFeedback(string(feedback)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "feedback must be positive or negative")
	}
	if key == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "query_hash is required")
	}
	now := requestcontext.Now(ctx)

	var became bool
	entry, err := s.store.Update(ctx, key, func(current *models.Entry) (*models.Entry, error) {
		if current == nil {
			return nil, sentinel.ErrNotFound
		}
		became = current.ApplyFeedback(feedback, now)
		return current, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no cached answer for this query")
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "concurrent feedback on this answer, retry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record feedback")
	}

	s.metrics.IncrementFeedback(string(feedback), became)
	s.emitFeedback(ctx, entry, feedback, became)

	return &FeedbackResult{
		Key:               key,
		Invalidated:       entry.Invalidated,
		BecameInvalidated: became,
		Positive:          entry.Positive,
		Negative:          entry.Negative,
	}, nil
}

// Get returns the entry for key regardless of trust.
func (s *Service) Get(ctx context.Context, key string) (*models.Entry, error) {
	e, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no cached answer for this query")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read cached answer")
	}
	return e, nil
}

func (s *Service) emitFeedback(ctx context.Context, e *models.Entry, f models.Feedback, became bool) {
	identity := requestcontext.Identity(ctx)
	event := events.Event{
		Type:     events.TypeFeedbackRecorded,
		Key:      e.Key,
		Identity: identity.String(),
		Attributes: map[string]string{
			"feedback": string(f),
			"positive": strconv.Itoa(e.Positive),
			"negative": strconv.Itoa(e.Negative),
		},
		Timestamp: requestcontext.Now(ctx),
	}
	if err := events.Emit(ctx, s.publisher, event); err != nil {
		s.logger.WarnContext(ctx, "feedback event not published", "query_hash", e.Key, "error", err)
	}
	if !became {
		return
	}
	s.logger.InfoContext(ctx, "cached answer invalidated", "query_hash", e.Key,
		"positive", e.Positive, "negative", e.Negative)
	event.Type = events.TypeCacheInvalidated
	if err := events.Emit(ctx, s.publisher, event); err != nil {
		s.logger.WarnContext(ctx, "invalidation event not published", "query_hash", e.Key, "error", err)
	}
}
