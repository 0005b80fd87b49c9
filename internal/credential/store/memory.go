// Package store holds sealed credential stores.
package store

import (
	"context"
	"sync"

	"askdata/internal/credential/models"
	"askdata/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	creds map[string]models.Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creds: make(map[string]models.Credential)}
}

func (s *InMemoryStore) Get(_ context.Context, identity string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c.Sealed = append([]byte(nil), c.Sealed...)
	return &c, nil
}

func (s *InMemoryStore) Put(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	stored.Sealed = append([]byte(nil), c.Sealed...)
	s.creds[c.Identity] = stored
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[identity]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.creds, identity)
	return nil
}
