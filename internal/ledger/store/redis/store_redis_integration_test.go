//go:build integration

package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"kitties/internal/ledger/models"
	ledgerredis "kitties/internal/ledger/store/redis"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/sentinel"
	"kitties/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ledgerredis.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ledgerredis.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestReserveAndRelease() {
	ctx := context.Background()
	account := id.NewAccountID()

	b, err := s.store.Credit(ctx, account, 2500)
	s.Require().NoError(err)
	s.Equal(uint64(2500), b.Free)

	s.Require().NoError(s.store.Reserve(ctx, account, 1000))
	s.Require().NoError(s.store.Reserve(ctx, account, 1000))
	s.ErrorIs(s.store.Reserve(ctx, account, 1000), models.ErrInsufficientFunds)

	s.Require().NoError(s.store.Release(ctx, account, 1000))
	s.ErrorIs(s.store.Release(ctx, account, 5000), sentinel.ErrInvalidState)

	b, err = s.store.Get(ctx, account)
	s.Require().NoError(err)
	s.Equal(uint64(1500), b.Free)
	s.Equal(uint64(1000), b.Reserved)
}

func (s *RedisStoreSuite) TestUnknownAccount() {
	ctx := context.Background()
	account := id.NewAccountID()

	b, err := s.store.Get(ctx, account)
	s.Require().NoError(err)
	s.Equal(models.Balance{Account: account}, b)
	s.ErrorIs(s.store.Reserve(ctx, account, 1), models.ErrInsufficientFunds)
}

func (s *RedisStoreSuite) TestConcurrentReservationsNeverOverdraw() {
	ctx := context.Background()
	account := id.NewAccountID()
	_, err := s.store.Credit(ctx, account, 10_000)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.store.Reserve(ctx, account, 1000) == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(10), succeeded.Load())
}
