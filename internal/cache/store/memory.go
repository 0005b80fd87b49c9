// Package store holds the cache entry stores.
package store

import (
	"context"
	"sync"

	"askdata/internal/cache/models"
	"askdata/internal/cache/ports"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/platform/shardlock"
)

// InMemoryStore keeps entries in a map. Updates on one key are serialized by
// a sharded lock; the map itself is guarded by a RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.Entry
	locks   *shardlock.Locks
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]*models.Entry),
		locks:   shardlock.New(shardlock.DefaultShards),
	}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *InMemoryStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (*models.Entry, error) {
	var out *models.Entry
	err := s.locks.Do(ctx, key, func() error {
		s.mu.RLock()
		current := s.entries[key].Clone()
		s.mu.RUnlock()

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		s.mu.Lock()
		s.entries[key] = next.Clone()
		s.mu.Unlock()
		out = next
		return nil
	})
	return out, err
}

// Len returns the number of entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
