package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"askdata/internal/credential/models"
	"askdata/pkg/platform/sentinel"
)

const credentialKeyPrefix = "askdata:vault:"

// RedisStore keeps sealed credentials as JSON values without expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisCredential struct {
	Sealed    []byte    `json:"sealed"`
	Hint      string    `json:"hint"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *RedisStore) Get(ctx context.Context, identity string) (*models.Credential, error) {
	data, err := s.client.Get(ctx, credentialKeyPrefix+identity).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	var r redisCredential
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &models.Credential{
		Identity:  identity,
		Sealed:    r.Sealed,
		Hint:      r.Hint,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, c *models.Credential) error {
	data, err := json.Marshal(redisCredential{Sealed: c.Sealed, Hint: c.Hint, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := s.client.Set(ctx, credentialKeyPrefix+c.Identity, data, 0).Err(); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	n, err := s.client.Del(ctx, credentialKeyPrefix+identity).Result()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
