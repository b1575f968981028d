package admin

import (
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
)

type DepositRequest struct {
	Amount *uint64 `json:"amount"`
}

func (r DepositRequest) Validate() error {
	if r.Amount == nil {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	if *r.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}

// DepositResponse is the account balance after the deposit.
type DepositResponse struct {
	Account  id.AccountID `json:"account"`
	Free     uint64       `json:"free"`
	Reserved uint64       `json:"reserved"`
}
