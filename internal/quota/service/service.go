// Package service implements the per-identity daily quota.
//
// Account identities get Limits.Account queries per day unless they hold a
// personal credential, in which case they are unbounded but still counted.
// Anonymous sessions get Limits.Anonymous queries per day and never bypass.
// A denied request does not consume quota.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"askdata/internal/events"
	"askdata/internal/quota/metrics"
	"askdata/internal/quota/models"
	"askdata/internal/quota/ports"
	"askdata/pkg/domain"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	Store     = ports.Store
	Publisher = ports.Publisher
)

// Limits are daily query budgets.
type Limits struct {
	Account   int
	Anonymous int
}

// DefaultLimits mirrors the public deployment.
func DefaultLimits() Limits {
	return Limits{Account: 10, Anonymous: 3}
}

func (l Limits) forKind(kind domain.IdentityKind) int {
	if kind == domain.IdentityAnonymous {
		return l.Anonymous
	}
	return l.Account
}

type Governor struct {
	store     Store
	limits    Limits
	location  *time.Location
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Governor)

func WithLimits(l Limits) Option {
	return func(g *Governor) {
		g.limits = l
	}
}

// WithLocation sets the time zone whose midnight resets counters.
func WithLocation(loc *time.Location) Option {
	return func(g *Governor) {
		if loc != nil {
			g.location = loc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) {
		g.logger = logger
	}
}

func WithPublisher(p Publisher) Option {
	return func(g *Governor) {
		g.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Governor) {
		g.metrics = m
	}
}

func New(store Store, opts ...Option) (*Governor, error) {
	if store == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	g := &Governor{
		store:    store,
		limits:   DefaultLimits(),
		location: time.UTC,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.limits.Account < 0 || g.limits.Anonymous < 0 {
		return nil, fmt.Errorf("quota limits must not be negative")
	}
	return g, nil
}

// CheckAndIncrement evaluates and, when allowed, consumes one query.
func (g *Governor) CheckAndIncrement(ctx context.Context, identity domain.Identity) (models.Decision, error) {
	if identity.IsZero() {
		return models.Decision{}, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	now := requestcontext.Now(ctx)
	today := models.Day(now.In(g.location))
	limit := g.limits.forKind(identity.Kind)

	var (
		decision models.Decision
		rolled   bool
	)
	_, err := g.store.Update(ctx, identity.String(), func(current *models.State) (*models.State, error) {
		st := current
		if st == nil {
			st = models.NewState(identity.String(), today, now)
		}
		rolled = current != nil && st.RollOver(today)
		st.UpdatedAt = now

		if st.HasCredential && !identity.IsAnonymous() {
			st.QueriesToday++
			decision = models.Decision{Allowed: true, Remaining: models.Unlimited, Unbounded: true, Used: st.QueriesToday}
			return st, nil
		}
		if st.QueriesToday >= limit {
			decision = models.Decision{Remaining: 0, NeedsCredential: true, Used: st.QueriesToday, Limit: limit}
			return nil, nil
		}
		st.QueriesToday++
		decision = models.Decision{Allowed: true, Remaining: limit - st.QueriesToday, Used: st.QueriesToday, Limit: limit}
		return st, nil
	})
	if errors.Is(err, sentinel.ErrConflict) {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "quota is busy, retry shortly")
	}
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update quota")
	}

	if rolled {
		g.metrics.IncrementRollover()
	}
	kind := string(identity.Kind)
	switch {
	case decision.Unbounded:
		g.metrics.IncrementDecision(kind, "unbounded")
	case decision.Allowed:
		g.metrics.IncrementDecision(kind, "allowed")
	default:
		g.metrics.IncrementDecision(kind, "denied")
		g.emitExceeded(ctx, identity, decision)
	}
	return decision, nil
}

// Peek reports the current decision without consuming quota.
func (g *Governor) Peek(ctx context.Context, identity domain.Identity) (models.Decision, error) {
	if identity.IsZero() {
		return models.Decision{}, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	limit := g.limits.forKind(identity.Kind)
	today := models.Day(requestcontext.Now(ctx).In(g.location))

	st, err := g.store.Get(ctx, identity.String())
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read quota")
	}
	used := 0
	if st != nil {
		if st.HasCredential && !identity.IsAnonymous() {
			if st.Date == today {
				used = st.QueriesToday
			}
			return models.Decision{Allowed: true, Remaining: models.Unlimited, Unbounded: true, Used: used}, nil
		}
		if st.Date == today {
			used = st.QueriesToday
		}
	}
	remaining := max(limit-used, 0)
	return models.Decision{
		Allowed:         remaining > 0,
		Remaining:       remaining,
		NeedsCredential: remaining == 0,
		Used:            used,
		Limit:           limit,
	}, nil
}

// SetCredential records whether an account holds a personal credential.
// Anonymous sessions cannot hold one.
func (g *Governor) SetCredential(ctx context.Context, identity domain.Identity, has bool) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if identity.IsAnonymous() {
		return dErrors.New(dErrors.CodeForbidden, "anonymous sessions cannot register a credential")
	}
	now := requestcontext.Now(ctx)
	today := models.Day(now.In(g.location))

	_, err := g.store.Update(ctx, identity.String(), func(current *models.State) (*models.State, error) {
		st := current
		if st == nil {
			st = models.NewState(identity.String(), today, now)
		}
		st.HasCredential = has
		st.UpdatedAt = now
		return st, nil
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update credential flag")
	}
	return nil
}

func (g *Governor) emitExceeded(ctx context.Context, identity domain.Identity, d models.Decision) {
	g.logger.InfoContext(ctx, "quota exceeded", "identity", identity.String(), "limit", d.Limit)
	err := events.Emit(ctx, g.publisher, events.Event{
		Type:       events.TypeQuotaExceeded,
		Key:        identity.String(),
		Identity:   identity.String(),
		Attributes: map[string]string{"limit": strconv.Itoa(d.Limit), "kind": string(identity.Kind)},
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil {
		g.logger.WarnContext(ctx, "quota event not published", "identity", identity.String(), "error", err)
	}
}
