package ports

import (
	"context"

	"askdata/internal/credential/models"
	"askdata/internal/events"
	"askdata/pkg/domain"
)

// Store persists sealed credentials by namespaced identity.
type Store interface {
	Get(ctx context.Context, identity string) (*models.Credential, error)
	Put(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, identity string) error
}

// QuotaFlagger toggles the quota bypass of an identity.
type QuotaFlagger interface {
	SetCredential(ctx context.Context, identity domain.Identity, has bool) error
}

// KeyVerifier confirms with the interpreter provider that a key is live.
type KeyVerifier interface {
	Verify(ctx context.Context, apiKey string) error
}

type Publisher = events.Publisher
