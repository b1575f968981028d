// Package postgres stores registry state in PostgreSQL.
//
// RunInTx locks the kitty_counter row for the whole transaction, which
// serializes every registry writer the way the in-memory store's writer lock
// does. The transaction travels in the context so a PostgreSQL ledger joins it.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	gocache "github.com/patrickmn/go-cache"

	"kitties/internal/kitties/models"
	"kitties/internal/kitties/ports"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/sentinel"
	txcontext "kitties/pkg/platform/tx"
)

const (
	defaultTxTimeout       = 5 * time.Second
	defaultCacheExpiration = 10 * time.Minute
	cacheCleanupInterval   = 20 * time.Minute
)

var (
	_ ports.Registry = (*PostgresStore)(nil)
	_ ports.Store    = (*txStore)(nil)
)

// PostgresStore reads committed registry state and runs locked transactions.
// Kitties are immutable, so committed rows are cached by id.
type PostgresStore struct {
	db           *sql.DB
	maxInventory int
	maxID        models.KittyID
	timeout      time.Duration
	kitties      *gocache.Cache
}

type Option func(*PostgresStore)

func WithTxTimeout(d time.Duration) Option {
	return func(s *PostgresStore) {
		s.timeout = d
	}
}

func WithMaxKittyID(maxID models.KittyID) Option {
	return func(s *PostgresStore) {
		s.maxID = maxID
	}
}

// WithCacheExpiration sets how long committed kitties stay cached.
func WithCacheExpiration(d time.Duration) Option {
	return func(s *PostgresStore) {
		s.kitties = gocache.New(d, cacheCleanupInterval)
	}
}

func New(db *sql.DB, maxInventory int, opts ...Option) *PostgresStore {
	s := &PostgresStore{
		db:           db,
		maxInventory: maxInventory,
		maxID:        models.KittyID(^uint32(0)),
		timeout:      defaultTxTimeout,
		kitties:      gocache.New(defaultCacheExpiration, cacheCleanupInterval),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) NextID(ctx context.Context) (models.KittyID, error) {
	return nextID(ctx, s.db, "")
}

func (s *PostgresStore) FindKitty(ctx context.Context, kittyID models.KittyID) (*models.Kitty, error) {
	if cached, ok := s.kitties.Get(kittyID.String()); ok {
		kitty := cached.(models.Kitty)
		return &kitty, nil
	}
	kitty, err := findKitty(ctx, s.db, kittyID)
	if err != nil {
		return nil, err
	}
	s.kitties.SetDefault(kittyID.String(), *kitty)
	return kitty, nil
}

func (s *PostgresStore) FindKitties(ctx context.Context, ids []models.KittyID) ([]models.Kitty, error) {
	return findKitties(ctx, s.db, ids)
}

func (s *PostgresStore) FindOwner(ctx context.Context, kittyID models.KittyID) (id.AccountID, error) {
	return findOwner(ctx, s.db, kittyID)
}

func (s *PostgresStore) Inventory(ctx context.Context, owner id.AccountID) ([]models.KittyID, error) {
	return inventory(ctx, s.db, owner)
}

// RunInTx runs fn inside a SQL transaction holding the counter row lock.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store ports.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	next, err := nextID(ctx, tx, " FOR UPDATE")
	if err != nil {
		if ctx.Err() != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted waiting for counter lock")
		}
		return err
	}

	store := &txStore{tx: tx, next: next, maxID: s.maxID, maxInventory: s.maxInventory}
	if err := fn(txcontext.WithTx(ctx, tx), store); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if ctx.Err() != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
		}
		return fmt.Errorf("commit registry tx: %w", err)
	}
	return nil
}

// txStore issues every statement on one transaction.
type txStore struct {
	tx           *sql.Tx
	next         models.KittyID
	maxID        models.KittyID
	maxInventory int
}

func (t *txStore) NextID(_ context.Context) (models.KittyID, error) {
	return t.next, nil
}

func (t *txStore) AdvanceID(ctx context.Context) error {
	if t.next >= t.maxID {
		return fmt.Errorf("kitty id %d is the ceiling: %w", t.next, sentinel.ErrLimitExceeded)
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE kitty_counter SET next_id = next_id + 1 WHERE singleton`); err != nil {
		return fmt.Errorf("advance kitty id: %w", err)
	}
	t.next++
	return nil
}

func (t *txStore) FindKitty(ctx context.Context, kittyID models.KittyID) (*models.Kitty, error) {
	return findKitty(ctx, t.tx, kittyID)
}

func (t *txStore) FindKitties(ctx context.Context, ids []models.KittyID) ([]models.Kitty, error) {
	return findKitties(ctx, t.tx, ids)
}

func (t *txStore) FindOwner(ctx context.Context, kittyID models.KittyID) (id.AccountID, error) {
	return findOwner(ctx, t.tx, kittyID)
}

func (t *txStore) Inventory(ctx context.Context, owner id.AccountID) ([]models.KittyID, error) {
	return inventory(ctx, t.tx, owner)
}

func (t *txStore) SaveKitty(ctx context.Context, kitty models.Kitty) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO kitties (id, genome) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		int64(kitty.ID), kitty.Genome[:])
	if err != nil {
		return fmt.Errorf("insert kitty: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("insert kitty: %w", err)
	} else if n == 0 {
		return fmt.Errorf("kitty %d: %w", kitty.ID, sentinel.ErrConflict)
	}
	return nil
}

func (t *txStore) SetOwner(ctx context.Context, kittyID models.KittyID, owner id.AccountID) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO kitty_owners (kitty_id, owner) VALUES ($1, $2)
		ON CONFLICT (kitty_id) DO UPDATE SET owner = EXCLUDED.owner`,
		int64(kittyID), owner.String())
	if err != nil {
		return fmt.Errorf("set owner: %w", err)
	}
	return nil
}

// AddOwned appends kittyID at the end of owner's positions.
func (t *txStore) AddOwned(ctx context.Context, owner id.AccountID, kittyID models.KittyID) error {
	size, err := t.inventorySize(ctx, owner)
	if err != nil {
		return err
	}
	if size >= t.maxInventory {
		return fmt.Errorf("inventory holds %d: %w", size, sentinel.ErrLimitExceeded)
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO kitty_inventory (owner, kitty_id, position) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		owner.String(), int64(kittyID), size)
	if err != nil {
		return fmt.Errorf("add owned kitty: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("add owned kitty: %w", err)
	} else if n == 0 {
		return fmt.Errorf("kitty %d already listed: %w", kittyID, sentinel.ErrConflict)
	}
	return nil
}

// RemoveOwned deletes kittyID and moves the owner's last entry into its slot.
func (t *txStore) RemoveOwned(ctx context.Context, owner id.AccountID, kittyID models.KittyID) error {
	var position int
	err := t.tx.QueryRowContext(ctx, `
		DELETE FROM kitty_inventory WHERE owner = $1 AND kitty_id = $2
		RETURNING position`,
		owner.String(), int64(kittyID)).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("kitty %d not held: %w", kittyID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("remove owned kitty: %w", err)
	}

	size, err := t.inventorySize(ctx, owner)
	if err != nil {
		return err
	}
	if position == size {
		return nil
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE kitty_inventory SET position = $2 WHERE owner = $1 AND position = $3`,
		owner.String(), position, size)
	if err != nil {
		return fmt.Errorf("compact inventory: %w", err)
	}
	return nil
}

func (t *txStore) inventorySize(ctx context.Context, owner id.AccountID) (int, error) {
	var size int
	err := t.tx.QueryRowContext(ctx,
		`SELECT count(*) FROM kitty_inventory WHERE owner = $1`, owner.String()).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}
	return size, nil
}

func nextID(ctx context.Context, q txcontext.Executor, lock string) (models.KittyID, error) {
	var next int64
	err := q.QueryRowContext(ctx, `SELECT next_id FROM kitty_counter WHERE singleton`+lock).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("read kitty counter: %w", err)
	}
	return models.KittyID(next), nil
}

func findKitty(ctx context.Context, q txcontext.Executor, kittyID models.KittyID) (*models.Kitty, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `SELECT genome FROM kitties WHERE id = $1`, int64(kittyID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find kitty: %w", err)
	}
	kitty := models.Kitty{ID: kittyID}
	copy(kitty.Genome[:], raw)
	return &kitty, nil
}

func findKitties(ctx context.Context, q txcontext.Executor, ids []models.KittyID) ([]models.Kitty, error) {
	if len(ids) == 0 {
		return []models.Kitty{}, nil
	}
	keys := make([]int64, len(ids))
	for i, kittyID := range ids {
		keys[i] = int64(kittyID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT k.id, k.genome
		FROM unnest($1::bigint[]) WITH ORDINALITY AS wanted(id, ord)
		JOIN kitties k ON k.id = wanted.id
		ORDER BY wanted.ord`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("find kitties: %w", err)
	}
	defer rows.Close()

	out := make([]models.Kitty, 0, len(ids))
	for rows.Next() {
		var (
			rawID int64
			raw   []byte
		)
		if err := rows.Scan(&rawID, &raw); err != nil {
			return nil, fmt.Errorf("scan kitty: %w", err)
		}
		kitty := models.Kitty{ID: models.KittyID(rawID)}
		copy(kitty.Genome[:], raw)
		out = append(out, kitty)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find kitties: %w", err)
	}
	return out, nil
}

func findOwner(ctx context.Context, q txcontext.Executor, kittyID models.KittyID) (id.AccountID, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT owner FROM kitty_owners WHERE kitty_id = $1`, int64(kittyID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return id.AccountID{}, sentinel.ErrNotFound
	}
	if err != nil {
		return id.AccountID{}, fmt.Errorf("find owner: %w", err)
	}
	owner, err := id.ParseAccountID(raw)
	if err != nil {
		return id.AccountID{}, fmt.Errorf("stored owner %q: %w", raw, err)
	}
	return owner, nil
}

func inventory(ctx context.Context, q txcontext.Executor, owner id.AccountID) ([]models.KittyID, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT kitty_id FROM kitty_inventory WHERE owner = $1 ORDER BY position`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	held := []models.KittyID{}
	for rows.Next() {
		var kittyID int64
		if err := rows.Scan(&kittyID); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		held = append(held, models.KittyID(kittyID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return held, nil
}
