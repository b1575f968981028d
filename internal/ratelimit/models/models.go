package models

import (
	"fmt"
	"time"

	id "kitties/pkg/domain"
)

// Class groups endpoints that share one budget per account.
type Class string

const (
	ClassMint     Class = "mint"
	ClassBreed    Class = "breed"
	ClassTransfer Class = "transfer"
)

// Limit allows Requests within any sliding Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
	Degraded   bool
}

// Key scopes a bucket to an account and an endpoint class.
func Key(account id.AccountID, class Class) string {
	return fmt.Sprintf("ratelimit:%s:%s", class, account)
}
