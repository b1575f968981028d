// Package ports defines the interfaces the kitty registry service consumes.
package ports

import (
	"context"

	"kitties/internal/kitties/models"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/events"
)

// Reader answers queries against committed registry state.
type Reader interface {
	// NextID returns the id the next created kitty will receive.
	NextID(ctx context.Context) (models.KittyID, error)

	// FindKitty returns sentinel.ErrNotFound for ids never issued.
	FindKitty(ctx context.Context, kittyID models.KittyID) (*models.Kitty, error)

	// FindKitties returns the kitties among ids that exist, in the order of ids.
	FindKitties(ctx context.Context, ids []models.KittyID) ([]models.Kitty, error)

	// FindOwner returns sentinel.ErrNotFound for ids never issued.
	FindOwner(ctx context.Context, kittyID models.KittyID) (id.AccountID, error)

	// Inventory lists the ids owner holds. Unknown owners hold nothing.
	Inventory(ctx context.Context, owner id.AccountID) ([]models.KittyID, error)
}

// Store is the registry state as seen from inside a transaction.
type Store interface {
	Reader

	// AdvanceID moves the allocator past the id returned by NextID.
	AdvanceID(ctx context.Context) error

	// SaveKitty inserts a new kitty. Existing ids return sentinel.ErrConflict.
	SaveKitty(ctx context.Context, kitty models.Kitty) error

	// SetOwner records owner for kittyID.
	SetOwner(ctx context.Context, kittyID models.KittyID, owner id.AccountID) error

	// AddOwned appends kittyID to the owner's inventory, returning
	// sentinel.ErrLimitExceeded when the inventory is full.
	AddOwned(ctx context.Context, owner id.AccountID, kittyID models.KittyID) error

	// RemoveOwned returns sentinel.ErrNotFound when owner does not hold kittyID.
	RemoveOwned(ctx context.Context, owner id.AccountID, kittyID models.KittyID) error
}

// Registry is a Reader that can also run all-or-nothing mutations.
// Writes made by fn become visible only if fn returns nil; the context passed
// to fn carries the transaction so collaborators can join it.
type Registry interface {
	Reader
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// CollateralLedger reserves and releases funds on accounts.
type CollateralLedger interface {
	// Reserve moves amount from free to reserved, failing with
	// ledger.ErrInsufficientFunds when the free balance is too low.
	Reserve(ctx context.Context, account id.AccountID, amount uint64) error
	// Release moves amount from reserved back to free.
	Release(ctx context.Context, account id.AccountID, amount uint64) error
}

// GenomeDeriver produces the pseudo-random genome bytes for a new kitty.
type GenomeDeriver interface {
	Derive(ctx context.Context, caller id.AccountID, nonce uint64) (models.Genome, error)
}

// EventPublisher emits registry events. Failures never fail an operation.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}
