package ports

import (
	"context"

	cachemodels "askdata/internal/cache/models"
	"askdata/internal/events"
	"askdata/internal/interpreter"
	quotamodels "askdata/internal/quota/models"
	"askdata/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Interpreter

// Interpreter is the external natural-language collaborator.
type Interpreter interface {
	Interpret(ctx context.Context, req interpreter.Request) (interpreter.Proposal, error)
	Explain(ctx context.Context, req interpreter.ExplainRequest) (interpreter.Explanation, error)
}

// Cache memoizes resolved answers.
type Cache interface {
	Lookup(ctx context.Context, query string) (*cachemodels.Entry, error)
	Upsert(ctx context.Context, query string, payload []byte) (*cachemodels.Entry, error)
}

// Quota enforces daily budgets.
type Quota interface {
	CheckAndIncrement(ctx context.Context, identity domain.Identity) (quotamodels.Decision, error)
	Peek(ctx context.Context, identity domain.Identity) (quotamodels.Decision, error)
}

// Credentials returns a caller's personal interpreter key, or "".
type Credentials interface {
	APIKey(ctx context.Context, identity domain.Identity) (string, error)
}

type Publisher = events.Publisher
