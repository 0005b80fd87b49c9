package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"askdata/internal/cache/models"
	"askdata/internal/cache/ports"
	"askdata/pkg/platform/sentinel"
)

const (
	cacheKeyPrefix        = "askdata:cache:"
	defaultMaxCASAttempts = 10
)

// RedisStore keeps entries as JSON values. Updates use WATCH/MULTI: a
// transaction that loses the race is retried, up to maxAttempts.
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
	s := &RedisStore{client: client, maxAttempts: defaultMaxCASAttempts}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type redisEntry struct {
	Query       string    `json:"query"`
	Payload     []byte    `json:"payload"`
	Positive    int       `json:"positive"`
	Negative    int       `json:"negative"`
	Invalidated bool      `json:"invalidated"`
	HitCount    int       `json:"hit_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.Entry, error) {
	return s.read(ctx, s.client, key)
}

func (s *RedisStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (*models.Entry, error) {
	rkey := cacheKeyPrefix + key
	var out *models.Entry

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
		data, err := json.Marshal(toRedisEntry(next))
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, data, 0)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}

	for range s.maxAttempts {
		err := s.client.Watch(ctx, txf, rkey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("update cache entry %s: %w", key, sentinel.ErrConflict)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c redisGetter, key string) (*models.Entry, error) {
	data, err := c.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	var r redisEntry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return fromRedisEntry(key, r), nil
}

func toRedisEntry(e *models.Entry) redisEntry {
	return redisEntry{
		Query:       e.Query,
		Payload:     e.Payload,
		Positive:    e.Positive,
		Negative:    e.Negative,
		Invalidated: e.Invalidated,
		HitCount:    e.HitCount,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func fromRedisEntry(key string, r redisEntry) *models.Entry {
	return &models.Entry{
		Key:         key,
		Query:       r.Query,
		Payload:     r.Payload,
		Positive:    r.Positive,
		Negative:    r.Negative,
		Invalidated: r.Invalidated,
		HitCount:    r.HitCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
