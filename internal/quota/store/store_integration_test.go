//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"askdata/internal/quota/models"
	"askdata/internal/quota/ports"
	"askdata/internal/quota/store"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/testutil/containers"
)

type storeContract struct {
	suite.Suite
	store ports.Store
}

func (s *storeContract) TestMissingIdentity() {
	_, err := s.store.Get(context.Background(), "account:absent")
	s.True(errors.Is(err, sentinel.ErrNotFound))

	_, err = s.store.Update(context.Background(), "account:absent", func(*models.State) (*models.State, error) {
		return nil, nil
	})
	s.Require().NoError(err)
	_, err = s.store.Get(context.Background(), "account:absent")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *storeContract) TestCredentialFlagPersists() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.store.Update(ctx, "account:cred", func(*models.State) (*models.State, error) {
		st := models.NewState("account:cred", models.Day(now), now)
		st.HasCredential = true
		st.QueriesToday = 3
		return st, nil
	})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, "account:cred")
	s.Require().NoError(err)
	s.True(got.HasCredential)
	s.Equal(3, got.QueriesToday)
	s.Equal(models.Day(now), got.Date)
}

func (s *storeContract) TestConcurrentIncrements() {
	ctx := context.Background()
	now := time.Now().UTC()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Update(ctx, "anonymous:busy", func(current *models.State) (*models.State, error) {
				if current == nil {
					current = models.NewState("anonymous:busy", models.Day(now), now)
				}
				current.QueriesToday++
				return current, nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.Get(ctx, "anonymous:busy")
	s.Require().NoError(err)
	s.Equal(20, got.QueriesToday)
}

type RedisStoreSuite struct {
	storeContract
	redis *containers.RedisContainer
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisStore(s.redis.Client, store.WithMaxAttempts(100))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestUsageExpiresButCredentialDoesNot() {
	ctx := context.Background()
	now := time.Now().UTC()
	_, err := s.store.Update(ctx, "account:ttl", func(*models.State) (*models.State, error) {
		st := models.NewState("account:ttl", models.Day(now), now)
		st.HasCredential = true
		return st, nil
	})
	s.Require().NoError(err)

	ttl, err := s.redis.TTL(ctx, "askdata:quota:account:ttl")
	s.Require().NoError(err)
	s.Greater(ttl, int64(24*60*60))

	ttl, err = s.redis.TTL(ctx, "askdata:quota:account:ttl:credential")
	s.Require().NoError(err)
	s.Equal(int64(-1), ttl)
}

type PostgresStoreSuite struct {
	storeContract
	pg *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	pgStore := store.NewPostgresStore(s.pg.DB)
	s.Require().NoError(pgStore.EnsureSchema(context.Background()))
	s.store = pgStore
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "quota_usage"))
}
