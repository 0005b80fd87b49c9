package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"askdata/internal/quota/models"
	"askdata/internal/quota/ports"
	"askdata/pkg/platform/sentinel"
)

const (
	quotaKeyPrefix = "askdata:quota:"
	// quotaTTL outlives a day so that yesterday's record is still around
	// when the first request of the next day rolls it over.
	quotaTTL           = 48 * time.Hour
	defaultMaxAttempts = 10
)

// RedisStore keeps quota state as JSON with a 48h expiry, refreshed on
// every write. Credential flags are kept in a separate key without expiry.
type RedisStore struct {
	client      *redis.Client
	maxAttempts int
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithMaxAttempts bounds optimistic retries per update.
func WithMaxAttempts(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, maxAttempts: defaultMaxAttempts}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type redisState struct {
	Date         string    `json:"date"`
	QueriesToday int       `json:"queries_today"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func usageKey(key string) string      { return quotaKeyPrefix + key }
func credentialKey(key string) string { return quotaKeyPrefix + key + ":credential" }

func (s *RedisStore) Get(ctx context.Context, key string) (*models.State, error) {
	return s.read(ctx, s.client, key)
}

func (s *RedisStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (*models.State, error) {
	uk, ck := usageKey(key), credentialKey(key)
	var out *models.State

	txf := func(tx *redis.Tx) error {
		out = nil
		current, err := s.read(ctx, tx, key)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}
		data, err := json.Marshal(redisState{Date: next.Date, QueriesToday: next.QueriesToday, UpdatedAt: next.UpdatedAt})
		if err != nil {
			return fmt.Errorf("encode quota state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, uk, data, quotaTTL)
			if next.HasCredential {
				pipe.Set(ctx, ck, "1", 0)
			} else {
				pipe.Del(ctx, ck)
			}
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}

	for range s.maxAttempts {
		err := s.client.Watch(ctx, txf, uk, ck)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("update quota %s: %w", key, sentinel.ErrConflict)
}

type redisReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

func (s *RedisStore) read(ctx context.Context, c redisReader, key string) (*models.State, error) {
	hasCredential, err := c.Exists(ctx, credentialKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("get quota credential: %w", err)
	}

	data, err := c.Get(ctx, usageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		if hasCredential == 0 {
			return nil, sentinel.ErrNotFound
		}
		return &models.State{Key: key, HasCredential: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota state: %w", err)
	}

	var r redisState
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode quota state: %w", err)
	}
	return &models.State{
		Key:           key,
		Date:          r.Date,
		QueriesToday:  r.QueriesToday,
		HasCredential: hasCredential > 0,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}
