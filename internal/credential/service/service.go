// Package service manages personal interpreter credentials.
//
// Registering a credential verifies the key with the provider, seals it,
// stores it and lifts the caller's daily quota. Only account identities may
// hold one.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"askdata/internal/credential/models"
	"askdata/internal/credential/ports"
	"askdata/internal/credential/vault"
	"askdata/internal/events"
	"askdata/internal/interpreter"
	"askdata/pkg/domain"
	dErrors "askdata/pkg/domain-errors"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/requestcontext"
)

type (
	Store        = ports.Store
	QuotaFlagger = ports.QuotaFlagger
	KeyVerifier  = ports.KeyVerifier
	Publisher    = ports.Publisher
)

// Status describes a registered credential without revealing it.
type Status struct {
	Registered bool
	Hint       string
}

type Service struct {
	store     Store
	vault     *vault.Vault
	verifier  KeyVerifier
	quota     QuotaFlagger
	publisher Publisher
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

// WithQuota keeps the quota bypass flag in step with registrations.
func WithQuota(q QuotaFlagger) Option {
	return func(s *Service) {
		s.quota = q
	}
}

func New(store Store, v *vault.Vault, verifier KeyVerifier, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if v == nil {
		return nil, fmt.Errorf("credential vault is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("credential verifier is required")
	}
	svc := &Service{store: store, vault: v, verifier: verifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register seals and stores apiKey for identity, replacing any earlier key.
func (s *Service) Register(ctx context.Context, identity domain.Identity, apiKey string) (Status, error) {
	if err := requireAccount(identity); err != nil {
		return Status{}, err
	}
	key, err := models.ParseAPIKey(apiKey)
	if err != nil {
		return Status{}, err
	}
	if err := s.verify(ctx, identity, key); err != nil {
		return Status{}, err
	}
	sealed, err := s.vault.Seal(identity.String(), []byte(key))
	if err != nil {
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal credential")
	}

	now := requestcontext.Now(ctx)
	cred := &models.Credential{Identity: identity.String(), Sealed: sealed, Hint: models.Hint(key), CreatedAt: now, UpdatedAt: now}
	if existing, err := s.store.Get(ctx, identity.String()); err == nil {
		cred.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	if err := s.store.Put(ctx, cred); err != nil {
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}
	if err := s.setFlag(ctx, identity, true); err != nil {
		return Status{}, err
	}

	s.logger.InfoContext(ctx, "credential registered", "identity", identity.String())
	s.emit(ctx, identity, "registered")
	return Status{Registered: true, Hint: cred.Hint}, nil
}

// Remove deletes the credential of identity and restores its daily limit.
func (s *Service) Remove(ctx context.Context, identity domain.Identity) error {
	if err := requireAccount(identity); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, identity.String()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "no credential registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete credential")
	}
	if err := s.setFlag(ctx, identity, false); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "credential removed", "identity", identity.String())
	s.emit(ctx, identity, "removed")
	return nil
}

// Status reports whether identity holds a credential.
func (s *Service) Status(ctx context.Context, identity domain.Identity) (Status, error) {
	if identity.IsZero() || identity.IsAnonymous() {
		return Status{}, nil
	}
	c, err := s.store.Get(ctx, identity.String())
	if errors.Is(err, sentinel.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	return Status{Registered: true, Hint: c.Hint}, nil
}

// APIKey returns the plaintext key of identity, or "" when none is held.
func (s *Service) APIKey(ctx context.Context, identity domain.Identity) (string, error) {
	if identity.IsZero() || identity.IsAnonymous() {
		return "", nil
	}
	c, err := s.store.Get(ctx, identity.String())
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	plain, err := s.vault.Open(identity.String(), c.Sealed)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to open credential")
	}
	return string(plain), nil
}

// verify rejects keys the provider does not accept. Nothing is stored and
// the quota flag is untouched unless the provider answers yes.
func (s *Service) verify(ctx context.Context, identity domain.Identity, key string) error {
	err := s.verifier.Verify(ctx, key)
	if err == nil {
		return nil
	}
	if interpreter.CategoryOf(err) == interpreter.CategoryAuthentication {
		s.logger.InfoContext(ctx, "credential rejected by provider", "identity", identity.String())
		return dErrors.Wrap(err, dErrors.CodeValidation, "api_key was rejected by the interpreter provider")
	}
	s.logger.WarnContext(ctx, "credential verification failed", "identity", identity.String(), "error", err)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not verify api_key, retry shortly")
}

func (s *Service) setFlag(ctx context.Context, identity domain.Identity, has bool) error {
	if s.quota == nil {
		return nil
	}
	if err := s.quota.SetCredential(ctx, identity, has); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update quota bypass")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, identity domain.Identity, action string) {
	err := events.Emit(ctx, s.publisher, events.Event{
		Type:       events.TypeCredentialChanged,
		Key:        identity.String(),
		Identity:   identity.String(),
		Attributes: map[string]string{"action": action},
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "credential event not published", "identity", identity.String(), "error", err)
	}
}

func requireAccount(identity domain.Identity) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if identity.IsAnonymous() {
		return dErrors.New(dErrors.CodeForbidden, "sign in to register a personal credential")
	}
	return nil
}
