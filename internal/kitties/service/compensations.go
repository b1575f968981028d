package service

import (
	"context"
	"errors"
	"log/slog"

	ledgermodels "kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
)

// compensations collects undo steps for ledger effects made inside a
// registry transaction. Steps run newest first.
type compensations struct {
	steps []compensation
}

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

func (c *compensations) push(name string, fn func(ctx context.Context) error) {
	c.steps = append(c.steps, compensation{name: name, fn: fn})
}

func (c *compensations) undo(ctx context.Context, logger *slog.Logger) {
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(ctx); err != nil {
			logger.ErrorContext(ctx, "compensation failed",
				"step", step.name,
				"error", err,
			)
		}
	}
	c.steps = nil
}

// reserve holds collateral on account and records the matching release.
func (s *Service) reserve(ctx context.Context, account id.AccountID, comp *compensations) error {
	if err := s.ledger.Reserve(ctx, account, s.reserveAmount); err != nil {
		if errors.Is(err, ledgermodels.ErrInsufficientFunds) || dErrors.HasCode(err, dErrors.CodeTokenNotEnough) {
			return dErrors.Wrap(err, dErrors.CodeTokenNotEnough, "insufficient free balance for collateral")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve collateral")
	}
	comp.push("release "+account.String(), func(ctx context.Context) error {
		return s.ledger.Release(ctx, account, s.reserveAmount)
	})
	return nil
}

// release frees collateral on account and records the matching reserve.
func (s *Service) release(ctx context.Context, account id.AccountID, comp *compensations) error {
	if err := s.ledger.Release(ctx, account, s.reserveAmount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "owner collateral missing")
	}
	comp.push("reserve "+account.String(), func(ctx context.Context) error {
		return s.ledger.Reserve(ctx, account, s.reserveAmount)
	})
	return nil
}
