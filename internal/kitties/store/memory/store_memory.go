// Package memory keeps registry state in process memory.
//
// Writes only happen inside RunInTx, which holds the single writer lock for
// the whole transaction and stages every change in an overlay. The overlay is
// applied when fn succeeds and discarded otherwise, so readers never observe
// a partially applied operation.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kitties/internal/kitties/models"
	"kitties/internal/kitties/ports"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

var (
	_ ports.Registry = (*InMemoryStore)(nil)
	_ ports.Store    = (*txStore)(nil)
)

type state struct {
	nextID      models.KittyID
	maxID       models.KittyID
	kitties     map[models.KittyID]models.Kitty
	owners      map[models.KittyID]id.AccountID
	inventories map[id.AccountID]*models.Inventory
}

type InMemoryStore struct {
	mu           sync.RWMutex
	state        state
	maxInventory int
	timeout      time.Duration
}

type Option func(*InMemoryStore)

// WithTxTimeout bounds transactions whose context has no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *InMemoryStore) {
		s.timeout = d
	}
}

// WithMaxKittyID sets the allocator ceiling.
func WithMaxKittyID(maxID models.KittyID) Option {
	return func(s *InMemoryStore) {
		s.state.maxID = maxID
	}
}

// New returns an empty registry whose inventories hold at most maxInventory ids.
func New(maxInventory int, opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		state: state{
			maxID:       models.KittyID(^uint32(0)),
			kitties:     make(map[models.KittyID]models.Kitty),
			owners:      make(map[models.KittyID]id.AccountID),
			inventories: make(map[id.AccountID]*models.Inventory),
		},
		maxInventory: maxInventory,
		timeout:      defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) NextID(_ context.Context) (models.KittyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.nextID, nil
}

func (s *InMemoryStore) FindKitty(_ context.Context, kittyID models.KittyID) (*models.Kitty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kitty, ok := s.state.kitties[kittyID]; ok {
		return &kitty, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindKitties(_ context.Context, ids []models.KittyID) ([]models.Kitty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Kitty, 0, len(ids))
	for _, kittyID := range ids {
		if kitty, ok := s.state.kitties[kittyID]; ok {
			out = append(out, kitty)
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindOwner(_ context.Context, kittyID models.KittyID) (id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if owner, ok := s.state.owners[kittyID]; ok {
		return owner, nil
	}
	return id.AccountID{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Inventory(_ context.Context, owner id.AccountID) ([]models.KittyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inv, ok := s.state.inventories[owner]; ok {
		return inv.IDs(), nil
	}
	return []models.KittyID{}, nil
}

// Snapshot returns copies of the ownership and inventory maps for invariant checks.
func (s *InMemoryStore) Snapshot() (owners map[models.KittyID]id.AccountID, inventories map[id.AccountID][]models.KittyID) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners = make(map[models.KittyID]id.AccountID, len(s.state.owners))
	for k, v := range s.state.owners {
		owners[k] = v
	}
	inventories = make(map[id.AccountID][]models.KittyID, len(s.state.inventories))
	for k, v := range s.state.inventories {
		inventories[k] = v.IDs()
	}
	return owners, inventories
}

// RunInTx runs fn with exclusive write access and commits its staged writes
// only when fn returns nil.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store ports.Store) error) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := newTxStore(&s.state, s.maxInventory)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}
	tx.commit()
	return nil
}

// txStore reads through to the base state and writes to an overlay.
type txStore struct {
	base         *state
	maxInventory int

	nextID      *models.KittyID
	kitties     map[models.KittyID]models.Kitty
	owners      map[models.KittyID]id.AccountID
	inventories map[id.AccountID]*models.Inventory
}

func newTxStore(base *state, maxInventory int) *txStore {
	return &txStore{
		base:         base,
		maxInventory: maxInventory,
		kitties:      make(map[models.KittyID]models.Kitty),
		owners:       make(map[models.KittyID]id.AccountID),
		inventories:  make(map[id.AccountID]*models.Inventory),
	}
}

func (t *txStore) NextID(_ context.Context) (models.KittyID, error) {
	if t.nextID != nil {
		return *t.nextID, nil
	}
	return t.base.nextID, nil
}

func (t *txStore) AdvanceID(ctx context.Context) error {
	next, _ := t.NextID(ctx)
	if next >= t.base.maxID {
		return fmt.Errorf("kitty id %d is the ceiling: %w", next, sentinel.ErrLimitExceeded)
	}
	next++
	t.nextID = &next
	return nil
}

func (t *txStore) FindKitty(_ context.Context, kittyID models.KittyID) (*models.Kitty, error) {
	if kitty, ok := t.kitties[kittyID]; ok {
		return &kitty, nil
	}
	if kitty, ok := t.base.kitties[kittyID]; ok {
		return &kitty, nil
	}
	return nil, sentinel.ErrNotFound
}

func (t *txStore) FindKitties(ctx context.Context, ids []models.KittyID) ([]models.Kitty, error) {
	out := make([]models.Kitty, 0, len(ids))
	for _, kittyID := range ids {
		if kitty, err := t.FindKitty(ctx, kittyID); err == nil {
			out = append(out, *kitty)
		}
	}
	return out, nil
}

func (t *txStore) SaveKitty(ctx context.Context, kitty models.Kitty) error {
	if _, err := t.FindKitty(ctx, kitty.ID); err == nil {
		return fmt.Errorf("kitty %d: %w", kitty.ID, sentinel.ErrConflict)
	}
	t.kitties[kitty.ID] = kitty
	return nil
}

func (t *txStore) FindOwner(_ context.Context, kittyID models.KittyID) (id.AccountID, error) {
	if owner, ok := t.owners[kittyID]; ok {
		return owner, nil
	}
	if owner, ok := t.base.owners[kittyID]; ok {
		return owner, nil
	}
	return id.AccountID{}, sentinel.ErrNotFound
}

func (t *txStore) SetOwner(_ context.Context, kittyID models.KittyID, owner id.AccountID) error {
	t.owners[kittyID] = owner
	return nil
}

// inventory returns the staged copy of owner's inventory, cloning it from
// the base state on first touch.
func (t *txStore) inventory(owner id.AccountID) *models.Inventory {
	if inv, ok := t.inventories[owner]; ok {
		return inv
	}
	var inv *models.Inventory
	if base, ok := t.base.inventories[owner]; ok {
		inv = base.Clone()
	} else {
		inv = models.NewInventory(t.maxInventory)
	}
	t.inventories[owner] = inv
	return inv
}

func (t *txStore) Inventory(_ context.Context, owner id.AccountID) ([]models.KittyID, error) {
	if inv, ok := t.inventories[owner]; ok {
		return inv.IDs(), nil
	}
	if inv, ok := t.base.inventories[owner]; ok {
		return inv.IDs(), nil
	}
	return []models.KittyID{}, nil
}

func (t *txStore) AddOwned(_ context.Context, owner id.AccountID, kittyID models.KittyID) error {
	return t.inventory(owner).TryAdd(kittyID)
}

func (t *txStore) RemoveOwned(_ context.Context, owner id.AccountID, kittyID models.KittyID) error {
	return t.inventory(owner).TryRemove(kittyID)
}

func (t *txStore) commit() {
	if t.nextID != nil {
		t.base.nextID = *t.nextID
	}
	for k, v := range t.kitties {
		t.base.kitties[k] = v
	}
	for k, v := range t.owners {
		t.base.owners[k] = v
	}
	for owner, inv := range t.inventories {
		if inv.Len() == 0 {
			delete(t.base.inventories, owner)
			continue
		}
		t.base.inventories[owner] = inv
	}
}
