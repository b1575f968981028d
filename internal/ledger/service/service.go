// Package service implements the collateral ledger used by the kitty registry.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kitties/internal/ledger/metrics"
	"kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/sentinel"
	"kitties/pkg/requestcontext"
)

// Store persists balances. Reserve and Release must check and move funds
// atomically per account.
type Store interface {
	Credit(ctx context.Context, account id.AccountID, amount uint64) (models.Balance, error)
	Reserve(ctx context.Context, account id.AccountID, amount uint64) error
	Release(ctx context.Context, account id.AccountID, amount uint64) error
	Get(ctx context.Context, account id.AccountID) (models.Balance, error)
}

// txJoiner is implemented by stores whose writes ride on a context-carried
// SQL transaction.
type txJoiner interface {
	JoinsTx() bool
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	svc := &Service{
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.New(nil),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// JoinsTx reports whether reservations roll back with the caller's SQL transaction.
func (s *Service) JoinsTx() bool {
	j, ok := s.store.(txJoiner)
	return ok && j.JoinsTx()
}

// Deposit credits amount to the free balance of account.
func (s *Service) Deposit(ctx context.Context, account id.AccountID, amount uint64) (models.Balance, error) {
	if account.IsNil() {
		return models.Balance{}, dErrors.New(dErrors.CodeBadRequest, "account is required")
	}
	b, err := s.store.Credit(ctx, account, amount)
	if errors.Is(err, sentinel.ErrLimitExceeded) {
		return models.Balance{}, dErrors.Wrap(err, dErrors.CodeConflict, "deposit would overflow balance")
	}
	if err != nil {
		return models.Balance{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit balance")
	}
	s.metrics.IncDeposited()
	s.logger.InfoContext(ctx, "ledger_deposit",
		"account", account,
		"amount", amount,
		"request_id", requestcontext.RequestID(ctx),
	)
	return b, nil
}

// Reserve holds amount of account's free balance. Insufficient funds wrap
// models.ErrInsufficientFunds under CodeTokenNotEnough.
func (s *Service) Reserve(ctx context.Context, account id.AccountID, amount uint64) error {
	err := s.store.Reserve(ctx, account, amount)
	if errors.Is(err, models.ErrInsufficientFunds) {
		s.metrics.IncRejected()
		return dErrors.Wrap(err, dErrors.CodeTokenNotEnough, "insufficient free balance for collateral")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve collateral")
	}
	s.metrics.IncReserved()
	return nil
}

// Release returns amount of account's reserved balance to free.
func (s *Service) Release(ctx context.Context, account id.AccountID, amount uint64) error {
	err := s.store.Release(ctx, account, amount)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "release exceeds reserved collateral")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release collateral")
	}
	s.metrics.IncReleased()
	return nil
}

func (s *Service) Balance(ctx context.Context, account id.AccountID) (models.Balance, error) {
	b, err := s.store.Get(ctx, account)
	if err != nil {
		return models.Balance{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return b, nil
}

// Genesis is one startup credit.
type Genesis struct {
	Account id.AccountID
	Amount  uint64
}

// SeedGenesis tops every listed account up to at least its genesis amount of
// total funds, so restarting against a persistent store does not mint money twice.
func (s *Service) SeedGenesis(ctx context.Context, balances []Genesis) error {
	for _, g := range balances {
		current, err := s.Balance(ctx, g.Account)
		if err != nil {
			return err
		}
		if current.Total() >= g.Amount {
			continue
		}
		if _, err := s.Deposit(ctx, g.Account, g.Amount-current.Total()); err != nil {
			return err
		}
	}
	return nil
}
