package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"askdata/internal/credential/store"
	"askdata/internal/credential/vault"
	"askdata/internal/interpreter"
	quotaservice "askdata/internal/quota/service"
	quotastore "askdata/internal/quota/store"
	"askdata/pkg/domain"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/requestcontext"
)

const testKey = "AIzaSyD-example-personal-key"

// stubVerifier answers Verify with the error mapped to the key, nil for
// unlisted keys.
type stubVerifier struct {
	errs  map[string]error
	calls []string
}

func (v *stubVerifier) Verify(_ context.Context, apiKey string) error {
	v.calls = append(v.calls, apiKey)
	return v.errs[apiKey]
}

type CredentialServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *store.InMemoryStore
	governor *quotaservice.Governor
	verifier *stubVerifier
	service  *Service
	account  domain.Identity
}

func TestCredentialServiceSuite(t *testing.T) {
	suite.Run(t, new(CredentialServiceSuite))
}

func (s *CredentialServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s.store = store.NewInMemoryStore()

	g, err := quotaservice.New(quotastore.NewInMemoryStore(), quotaservice.WithLimits(quotaservice.Limits{Account: 1, Anonymous: 1}))
	s.Require().NoError(err)
	s.governor = g

	v, err := vault.New(bytes.Repeat([]byte("k"), vault.MinSecretLen))
	s.Require().NoError(err)
	s.verifier = &stubVerifier{errs: map[string]error{}}
	svc, err := New(s.store, v, s.verifier, WithQuota(g))
	s.Require().NoError(err)
	s.service = svc

	s.account, err = domain.NewAccountIdentity("user-7")
	s.Require().NoError(err)
}

func (s *CredentialServiceSuite) TestRegisterLiftsQuota() {
	_, err := s.governor.CheckAndIncrement(s.ctx, s.account)
	s.Require().NoError(err)
	d, err := s.governor.CheckAndIncrement(s.ctx, s.account)
	s.Require().NoError(err)
	s.Require().False(d.Allowed)

	status, err := s.service.Register(s.ctx, s.account, "  "+testKey+" ")
	s.Require().NoError(err)
	s.True(status.Registered)
	s.Equal("…-key", status.Hint)

	d, err = s.governor.CheckAndIncrement(s.ctx, s.account)
	s.Require().NoError(err)
	s.True(d.Unbounded)

	key, err := s.service.APIKey(s.ctx, s.account)
	s.Require().NoError(err)
	s.Equal(testKey, key)

	stored, err := s.store.Get(s.ctx, s.account.String())
	s.Require().NoError(err)
	s.NotContains(string(stored.Sealed), testKey)
}

func (s *CredentialServiceSuite) TestRemoveRestoresLimit() {
	_, err := s.service.Register(s.ctx, s.account, testKey)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Remove(s.ctx, s.account))

	key, err := s.service.APIKey(s.ctx, s.account)
	s.Require().NoError(err)
	s.Empty(key)

	d, err := s.governor.Peek(s.ctx, s.account)
	s.Require().NoError(err)
	s.False(d.Unbounded)

	err = s.service.Remove(s.ctx, s.account)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CredentialServiceSuite) TestReRegisterKeepsCreation() {
	_, err := s.service.Register(s.ctx, s.account, testKey)
	s.Require().NoError(err)
	first, _ := s.store.Get(s.ctx, s.account.String())

	later := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC))
	_, err = s.service.Register(later, s.account, testKey+"-rotated")
	s.Require().NoError(err)
	second, _ := s.store.Get(s.ctx, s.account.String())

	s.True(second.CreatedAt.Equal(first.CreatedAt))
	s.True(second.UpdatedAt.After(first.UpdatedAt))
}

func (s *CredentialServiceSuite) TestRejections() {
	anon, err := domain.NewAnonymousIdentity("sess")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, anon, testKey)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Register(s.ctx, domain.Identity{}, testKey)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.Register(s.ctx, s.account, "short")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Register(s.ctx, s.account, "has a space inside it")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	status, err := s.service.Status(s.ctx, anon)
	s.Require().NoError(err)
	s.False(status.Registered)
}

func (s *CredentialServiceSuite) TestNewRequiresVerifier() {
	v, err := vault.New(bytes.Repeat([]byte("k"), vault.MinSecretLen))
	s.Require().NoError(err)
	_, err = New(s.store, v, nil)
	s.Error(err)
}

func (s *CredentialServiceSuite) TestRegisterVerifiesWithProvider() {
	s.Run("accepted key is checked once with the provider", func() {
		s.SetupTest()
		_, err := s.service.Register(s.ctx, s.account, testKey)
		s.Require().NoError(err)
		s.Equal([]string{testKey}, s.verifier.calls)
	})

	s.Run("rejected key is a validation error and lifts nothing", func() {
		s.SetupTest()
		s.verifier.errs[testKey] = &interpreter.UpstreamError{Category: interpreter.CategoryAuthentication, Message: "API key not valid"}

		_, err := s.service.Register(s.ctx, s.account, testKey)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		status, err := s.service.Status(s.ctx, s.account)
		s.Require().NoError(err)
		s.False(status.Registered)
		d, err := s.governor.Peek(s.ctx, s.account)
		s.Require().NoError(err)
		s.False(d.Unbounded)
	})

	s.Run("provider outage is retryable and lifts nothing", func() {
		s.SetupTest()
		s.verifier.errs[testKey] = &interpreter.UpstreamError{Category: interpreter.CategoryTransient, Message: "503"}

		_, err := s.service.Register(s.ctx, s.account, testKey)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		d, err := s.governor.Peek(s.ctx, s.account)
		s.Require().NoError(err)
		s.False(d.Unbounded)
	})
}
