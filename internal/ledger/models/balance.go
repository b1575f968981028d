// Package models holds the collateral ledger types.
package models

import (
	"errors"

	id "kitties/pkg/domain"
)

// ErrInsufficientFunds is returned when a reservation exceeds the free balance.
var ErrInsufficientFunds = errors.New("insufficient free balance")

// Balance splits an account's funds into spendable and held amounts.
type Balance struct {
	Account  id.AccountID `json:"account"`
	Free     uint64       `json:"free"`
	Reserved uint64       `json:"reserved"`
}

// Total returns free plus reserved funds.
func (b Balance) Total() uint64 {
	return b.Free + b.Reserved
}

// CanReserve reports whether amount fits in the free balance.
func (b Balance) CanReserve(amount uint64) bool {
	return b.Free >= amount
}
