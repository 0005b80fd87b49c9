package ports

import (
	"context"

	"askdata/internal/cache/models"
	"askdata/internal/events"
)

// UpdateFunc computes the next state of an entry. current is nil when the key
// has no entry and is a private copy otherwise. Returning a nil entry writes
// nothing; returning an error aborts the update.
type UpdateFunc func(current *models.Entry) (*models.Entry, error)

// Store persists cache entries. Update must be atomic per key: no concurrent
// Update on the same key may interleave between reading current and writing
// the result.
type Store interface {
	Get(ctx context.Context, key string) (*models.Entry, error)
	Update(ctx context.Context, key string, fn UpdateFunc) (*models.Entry, error)
}

// Publisher receives feedback and invalidation events.
type Publisher = events.Publisher
