package models

import (
	"fmt"

	"kitties/pkg/platform/sentinel"
)

// Inventory is the bounded set of kitties an account owns.
//
// Invariants:
//   - no id appears twice
//   - Len() <= Capacity()
//   - index[id] is the position of id in ids
//
// Removal swaps the last element into the freed slot, so order is not
// stable across removals.
type Inventory struct {
	ids      []KittyID
	index    map[KittyID]int
	capacity int
}

// NewInventory returns an empty inventory holding at most capacity ids.
func NewInventory(capacity int) *Inventory {
	return &Inventory{
		index:    make(map[KittyID]int),
		capacity: capacity,
	}
}

// InventoryFrom rebuilds an inventory from stored ids.
func InventoryFrom(capacity int, ids []KittyID) (*Inventory, error) {
	inv := NewInventory(capacity)
	for _, k := range ids {
		if err := inv.TryAdd(k); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func (inv *Inventory) Capacity() int {
	return inv.capacity
}

func (inv *Inventory) Len() int {
	return len(inv.ids)
}

func (inv *Inventory) Full() bool {
	return len(inv.ids) >= inv.capacity
}

func (inv *Inventory) Contains(k KittyID) bool {
	_, ok := inv.index[k]
	return ok
}

// TryAdd inserts k. It leaves the inventory untouched and returns
// sentinel.ErrLimitExceeded when full, or sentinel.ErrConflict when k is
// already present.
func (inv *Inventory) TryAdd(k KittyID) error {
	if inv.Contains(k) {
		return fmt.Errorf("kitty %d already in inventory: %w", k, sentinel.ErrConflict)
	}
	if inv.Full() {
		return fmt.Errorf("inventory holds %d kitties: %w", inv.capacity, sentinel.ErrLimitExceeded)
	}
	inv.index[k] = len(inv.ids)
	inv.ids = append(inv.ids, k)
	return nil
}

// TryRemove deletes k, returning sentinel.ErrNotFound when absent.
func (inv *Inventory) TryRemove(k KittyID) error {
	pos, ok := inv.index[k]
	if !ok {
		return fmt.Errorf("kitty %d not in inventory: %w", k, sentinel.ErrNotFound)
	}
	last := len(inv.ids) - 1
	if pos != last {
		moved := inv.ids[last]
		inv.ids[pos] = moved
		inv.index[moved] = pos
	}
	inv.ids = inv.ids[:last]
	delete(inv.index, k)
	return nil
}

// IDs returns a copy of the held ids in storage order.
func (inv *Inventory) IDs() []KittyID {
	return append([]KittyID(nil), inv.ids...)
}

func (inv *Inventory) Clone() *Inventory {
	c := &Inventory{
		ids:      append([]KittyID(nil), inv.ids...),
		index:    make(map[KittyID]int, len(inv.index)),
		capacity: inv.capacity,
	}
	for k, v := range inv.index {
		c.index[k] = v
	}
	return c
}
