// Package postgres stores ledger balances in PostgreSQL.
//
// Every statement runs on the transaction carried by the context when there
// is one, so reservations made during a registry transaction commit or roll
// back with it.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/sentinel"
	txcontext "kitties/pkg/platform/tx"
)

const maxAmount = "18446744073709551615"

type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// JoinsTx reports that writes participate in a context-carried SQL transaction.
func (s *PostgresStore) JoinsTx() bool {
	return true
}

func (s *PostgresStore) Credit(ctx context.Context, account id.AccountID, amount uint64) (models.Balance, error) {
	query := `
		INSERT INTO ledger_balances (account, free, reserved)
		VALUES ($1, $2::numeric, 0)
		ON CONFLICT (account) DO UPDATE
		SET free = ledger_balances.free + EXCLUDED.free, updated_at = now()
		WHERE ledger_balances.free + ledger_balances.reserved + EXCLUDED.free <= ` + maxAmount + `
		RETURNING free::text, reserved::text`

	row := txcontext.Use(ctx, s.db).QueryRowContext(ctx, query, account.String(), formatAmount(amount))
	b, err := scanBalance(account, row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Balance{}, fmt.Errorf("credit %d overflows balance: %w", amount, sentinel.ErrLimitExceeded)
	}
	if err != nil {
		return models.Balance{}, fmt.Errorf("credit balance: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) Reserve(ctx context.Context, account id.AccountID, amount uint64) error {
	query := `
		UPDATE ledger_balances
		SET free = free - $2::numeric, reserved = reserved + $2::numeric, updated_at = now()
		WHERE account = $1 AND free >= $2::numeric`

	res, err := txcontext.Use(ctx, s.db).ExecContext(ctx, query, account.String(), formatAmount(amount))
	if err != nil {
		return fmt.Errorf("reserve balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve balance: %w", err)
	}
	if affected == 0 {
		if amount == 0 {
			return nil
		}
		return models.ErrInsufficientFunds
	}
	return nil
}

func (s *PostgresStore) Release(ctx context.Context, account id.AccountID, amount uint64) error {
	query := `
		UPDATE ledger_balances
		SET reserved = reserved - $2::numeric, free = free + $2::numeric, updated_at = now()
		WHERE account = $1 AND reserved >= $2::numeric`

	res, err := txcontext.Use(ctx, s.db).ExecContext(ctx, query, account.String(), formatAmount(amount))
	if err != nil {
		return fmt.Errorf("release balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release balance: %w", err)
	}
	if affected == 0 && amount > 0 {
		return fmt.Errorf("release %d exceeds reserved: %w", amount, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, account id.AccountID) (models.Balance, error) {
	query := `SELECT free::text, reserved::text FROM ledger_balances WHERE account = $1`

	b, err := scanBalance(account, txcontext.Use(ctx, s.db).QueryRowContext(ctx, query, account.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Balance{Account: account}, nil
	}
	if err != nil {
		return models.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

func scanBalance(account id.AccountID, row *sql.Row) (models.Balance, error) {
	var free, reserved string
	if err := row.Scan(&free, &reserved); err != nil {
		return models.Balance{}, err
	}
	b := models.Balance{Account: account}
	var err error
	if b.Free, err = strconv.ParseUint(free, 10, 64); err != nil {
		return models.Balance{}, fmt.Errorf("parse free balance: %w", err)
	}
	if b.Reserved, err = strconv.ParseUint(reserved, 10, 64); err != nil {
		return models.Balance{}, fmt.Errorf("parse reserved balance: %w", err)
	}
	return b, nil
}

func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}
