// Package redis stores ledger balances in Redis hashes.
//
// Reserve and release run as Lua scripts so the check and the move happen
// atomically per account. Amounts are bounded by Redis integers (int64).
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/sentinel"
)

const keyPrefix = "ledger:balance:"

const (
	fieldFree     = "free"
	fieldReserved = "reserved"
)

// Moves amount between two fields when the source holds enough.
// Returns 1 on success, 0 when the source is short.
var moveScript = redis.NewScript(`
local have = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local amount = tonumber(ARGV[3])
if have < amount then
	return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[1], '-' .. ARGV[3])
redis.call('HINCRBY', KEYS[1], ARGV[2], ARGV[3])
return 1
`)

type RedisStore struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func key(account id.AccountID) string {
	return keyPrefix + account.String()
}

func (s *RedisStore) Credit(ctx context.Context, account id.AccountID, amount uint64) (models.Balance, error) {
	if amount > uint64(1<<63-1) {
		return models.Balance{}, fmt.Errorf("credit %d exceeds redis integer range: %w", amount, sentinel.ErrLimitExceeded)
	}
	if err := s.client.HIncrBy(ctx, key(account), fieldFree, int64(amount)).Err(); err != nil {
		return models.Balance{}, fmt.Errorf("credit balance: %w", err)
	}
	return s.Get(ctx, account)
}

func (s *RedisStore) Reserve(ctx context.Context, account id.AccountID, amount uint64) error {
	ok, err := s.move(ctx, account, fieldFree, fieldReserved, amount)
	if err != nil {
		return fmt.Errorf("reserve balance: %w", err)
	}
	if !ok {
		return models.ErrInsufficientFunds
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, account id.AccountID, amount uint64) error {
	ok, err := s.move(ctx, account, fieldReserved, fieldFree, amount)
	if err != nil {
		return fmt.Errorf("release balance: %w", err)
	}
	if !ok {
		return fmt.Errorf("release %d exceeds reserved: %w", amount, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *RedisStore) move(ctx context.Context, account id.AccountID, from, to string, amount uint64) (bool, error) {
	res, err := moveScript.Run(ctx, s.client, []string{key(account)}, from, to, strconv.FormatUint(amount, 10)).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, account id.AccountID) (models.Balance, error) {
	values, err := s.client.HMGet(ctx, key(account), fieldFree, fieldReserved).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	b := models.Balance{Account: account}
	if b.Free, err = parseField(values, 0); err != nil {
		return models.Balance{}, err
	}
	if b.Reserved, err = parseField(values, 1); err != nil {
		return models.Balance{}, err
	}
	return b, nil
}

func parseField(values []any, i int) (uint64, error) {
	if i >= len(values) || values[i] == nil {
		return 0, nil
	}
	s, ok := values[i].(string)
	if !ok {
		return 0, fmt.Errorf("unexpected balance field type %T", values[i])
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance field: %w", err)
	}
	return n, nil
}
