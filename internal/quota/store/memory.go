// Package store holds the quota state stores.
package store

import (
	"context"
	"sync"

	"askdata/internal/quota/models"
	"askdata/internal/quota/ports"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/platform/shardlock"
)

// InMemoryStore keeps quota state in process.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]*models.State
	locks  *shardlock.Locks
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states: make(map[string]*models.State),
		locks:  shardlock.New(shardlock.DefaultShards),
	}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return st.Clone(), nil
}

func (s *InMemoryStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (*models.State, error) {
	var out *models.State
	err := s.locks.Do(ctx, key, func() error {
		s.mu.RLock()
		current := s.states[key].Clone()
		s.mu.RUnlock()

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}
		s.mu.Lock()
		s.states[key] = next.Clone()
		s.mu.Unlock()
		out = next
		return nil
	})
	return out, err
}
