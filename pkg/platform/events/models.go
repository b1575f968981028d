// Package events carries registry notifications from services to sinks.
//
// Services emit fire-and-forget: a failing sink is logged and counted but
// never fails the operation that produced the event.
package events

import (
	"context"
	"time"

	id "kitties/pkg/domain"
)

// Kind names what happened.
type Kind string

const (
	KindKittyCreated     Kind = "kitty_created"
	KindKittyTransferred Kind = "kitty_transferred"
)

// Event is transport-agnostic so stores and sinks can fan out.
type Event struct {
	Kind Kind `json:"kind"`
	// Account is the caller: the minter, the breeder, or the sender of a transfer.
	Account id.AccountID `json:"account"`
	// Counterparty is the receiving account of a transfer.
	Counterparty id.AccountID `json:"counterparty,omitzero"`
	KittyID      uint32       `json:"kitty_id"`
	// Genome is the hex encoded genome of a created kitty.
	Genome string `json:"genome,omitempty"`
	// Parents holds the two parent ids of a bred kitty.
	Parents   []uint32  `json:"parents,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Involves reports whether account is the actor or the counterparty.
func (e Event) Involves(account id.AccountID) bool {
	return e.Account == account || (!e.Counterparty.IsNil() && e.Counterparty == account)
}

// Sink persists or forwards a batch of events.
type Sink interface {
	Publish(ctx context.Context, events ...Event) error
}
