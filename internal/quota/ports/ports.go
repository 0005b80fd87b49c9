package ports

import (
	"context"

	"askdata/internal/events"
	"askdata/internal/quota/models"
)

// UpdateFunc computes the next state. current is nil for unknown identities.
// Returning a nil state writes nothing.
type UpdateFunc func(current *models.State) (*models.State, error)

// Store persists quota state. Update must be atomic per key.
type Store interface {
	Get(ctx context.Context, key string) (*models.State, error)
	Update(ctx context.Context, key string, fn UpdateFunc) (*models.State, error)
}

// Publisher receives quota-exceeded events.
type Publisher = events.Publisher
