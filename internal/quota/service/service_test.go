package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"askdata/internal/events"
	"askdata/internal/quota/metrics"
	"askdata/internal/quota/models"
	"askdata/internal/quota/store"
	"askdata/pkg/domain"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/requestcontext"
)

// =============================================================================
// Quota Governor Test Suite
// =============================================================================
// Justification for unit tests: the daily limit is the only thing standing
// between anonymous traffic and the upstream model budget. Denials must not
// consume quota and the counter must survive concurrent requests.

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(t events.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type GovernorSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemoryStore
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	governor  *Governor
	account   domain.Identity
	anonymous domain.Identity
}

func TestGovernorSuite(t *testing.T) {
	suite.Run(t, new(GovernorSuite))
}

var day1 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func (s *GovernorSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), day1)
	s.store = store.NewInMemoryStore()
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.New(prometheus.NewRegistry())

	g, err := New(s.store,
		WithLimits(Limits{Account: 2, Anonymous: 1}),
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.governor = g

	s.account, err = domain.NewAccountIdentity("user-1")
	s.Require().NoError(err)
	s.anonymous, err = domain.NewAnonymousIdentity("session-1")
	s.Require().NoError(err)
}

func (s *GovernorSuite) check(ctx context.Context, id domain.Identity) models.Decision {
	d, err := s.governor.CheckAndIncrement(ctx, id)
	s.Require().NoError(err)
	return d
}

func (s *GovernorSuite) TestNew() {
	s.Run("store is required", func() {
		_, err := New(nil)
		s.Error(err)
	})
	s.Run("negative limits are rejected", func() {
		_, err := New(s.store, WithLimits(Limits{Account: -1}))
		s.Error(err)
	})
}

func (s *GovernorSuite) TestDailyLimit() {
	d := s.check(s.ctx, s.account)
	s.True(d.Allowed)
	s.Equal(1, d.Remaining)

	d = s.check(s.ctx, s.account)
	s.True(d.Allowed)
	s.Equal(0, d.Remaining)

	d = s.check(s.ctx, s.account)
	s.False(d.Allowed)
	s.True(d.NeedsCredential)
	s.Equal(0, d.Remaining)
	s.Equal(2, d.Limit)

	st, err := s.store.Get(s.ctx, s.account.String())
	s.Require().NoError(err)
	s.Equal(2, st.QueriesToday, "denials do not consume quota")

	s.Equal(1, s.publisher.count(events.TypeQuotaExceeded))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("account", "denied")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("account", "allowed")))
}

func (s *GovernorSuite) TestRollover() {
	s.check(s.ctx, s.account)
	s.check(s.ctx, s.account)
	s.False(s.check(s.ctx, s.account).Allowed)

	nextDay := requestcontext.WithTime(context.Background(), day1.Add(24*time.Hour))
	d := s.check(nextDay, s.account)
	s.True(d.Allowed)
	s.Equal(1, d.Remaining)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Rollovers))
}

func (s *GovernorSuite) TestRolloverFollowsConfiguredZone() {
	loc := time.FixedZone("UTC+2", 2*60*60)
	g, err := New(s.store, WithLimits(Limits{Account: 1, Anonymous: 1}), WithLocation(loc))
	s.Require().NoError(err)

	// 21:30 UTC is 23:30 local; 22:30 UTC is the next local day.
	late := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC))
	d, err := g.CheckAndIncrement(late, s.account)
	s.Require().NoError(err)
	s.True(d.Allowed)

	afterMidnight := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC))
	d, err = g.CheckAndIncrement(afterMidnight, s.account)
	s.Require().NoError(err)
	s.True(d.Allowed)
}

func (s *GovernorSuite) TestCredentialBypass() {
	s.check(s.ctx, s.account)
	s.check(s.ctx, s.account)
	s.Require().NoError(s.governor.SetCredential(s.ctx, s.account, true))

	for range 5 {
		d := s.check(s.ctx, s.account)
		s.True(d.Allowed)
		s.True(d.Unbounded)
		s.Equal(models.Unlimited, d.Remaining)
	}
	st, err := s.store.Get(s.ctx, s.account.String())
	s.Require().NoError(err)
	s.Equal(7, st.QueriesToday, "unbounded queries are still counted")

	s.Require().NoError(s.governor.SetCredential(s.ctx, s.account, false))
	s.False(s.check(s.ctx, s.account).Allowed)
}

func (s *GovernorSuite) TestAnonymous() {
	s.Run("separate limit", func() {
		s.True(s.check(s.ctx, s.anonymous).Allowed)
		d := s.check(s.ctx, s.anonymous)
		s.False(d.Allowed)
		s.True(d.NeedsCredential)
	})

	s.Run("cannot register a credential", func() {
		err := s.governor.SetCredential(s.ctx, s.anonymous, true)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("namespace does not collide with accounts", func() {
		account, err := domain.NewAccountIdentity("session-1")
		s.Require().NoError(err)
		s.True(s.check(s.ctx, account).Allowed)
	})
}

func (s *GovernorSuite) TestZeroIdentity() {
	_, err := s.governor.CheckAndIncrement(s.ctx, domain.Identity{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.governor.Peek(s.ctx, domain.Identity{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *GovernorSuite) TestPeek() {
	d, err := s.governor.Peek(s.ctx, s.account)
	s.Require().NoError(err)
	s.Equal(2, d.Remaining)

	s.check(s.ctx, s.account)
	d, err = s.governor.Peek(s.ctx, s.account)
	s.Require().NoError(err)
	s.Equal(1, d.Remaining)
	s.Equal(1, d.Used)

	d, err = s.governor.Peek(s.ctx, s.account)
	s.Require().NoError(err)
	s.Equal(1, d.Remaining, "peek does not consume")

	tomorrow := requestcontext.WithTime(context.Background(), day1.Add(24*time.Hour))
	d, err = s.governor.Peek(tomorrow, s.account)
	s.Require().NoError(err)
	s.Equal(2, d.Remaining, "a stale day counts as zero")
}

func (s *GovernorSuite) TestConcurrentRequestsNeverOvershoot() {
	g, err := New(s.store, WithLimits(Limits{Account: 10, Anonymous: 3}))
	s.Require().NoError(err)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := g.CheckAndIncrement(s.ctx, s.account)
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(10), allowed.Load())
}
