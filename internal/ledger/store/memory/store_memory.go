// Package memory keeps ledger balances in process memory.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.Mutex
	balances map[id.AccountID]*models.Balance
}

func New() *InMemoryStore {
	return &InMemoryStore{balances: make(map[id.AccountID]*models.Balance)}
}

func (s *InMemoryStore) balance(account id.AccountID) *models.Balance {
	b, ok := s.balances[account]
	if !ok {
		b = &models.Balance{Account: account}
		s.balances[account] = b
	}
	return b
}

func (s *InMemoryStore) Credit(_ context.Context, account id.AccountID, amount uint64) (models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.balance(account)
	if b.Free > math.MaxUint64-amount || b.Total() > math.MaxUint64-amount {
		return *b, fmt.Errorf("credit %d overflows balance: %w", amount, sentinel.ErrLimitExceeded)
	}
	b.Free += amount
	return *b, nil
}

func (s *InMemoryStore) Reserve(_ context.Context, account id.AccountID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.balance(account)
	if !b.CanReserve(amount) {
		return models.ErrInsufficientFunds
	}
	b.Free -= amount
	b.Reserved += amount
	return nil
}

func (s *InMemoryStore) Release(_ context.Context, account id.AccountID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.balance(account)
	if b.Reserved < amount {
		return fmt.Errorf("release %d exceeds reserved %d: %w", amount, b.Reserved, sentinel.ErrInvalidState)
	}
	b.Reserved -= amount
	b.Free += amount
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, account id.AccountID) (models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[account]; ok {
		return *b, nil
	}
	return models.Balance{Account: account}, nil
}
