package handler

import (
	"kitties/internal/kitties/models"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
)

// BreedRequest names the two parents of a new kitty.
type BreedRequest struct {
	Parent1 *models.KittyID `json:"parent_1"`
	Parent2 *models.KittyID `json:"parent_2"`
}

func (r *BreedRequest) Validate() error {
	if r.Parent1 == nil || r.Parent2 == nil {
		return dErrors.New(dErrors.CodeValidation, "parent_1 and parent_2 are required")
	}
	return nil
}

// TransferRequest names the receiving account.
type TransferRequest struct {
	NewOwner id.AccountID `json:"new_owner"`
}

func (r *TransferRequest) Validate() error {
	if r.NewOwner.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "new_owner is required")
	}
	return nil
}

type KittyResponse struct {
	ID     models.KittyID `json:"id"`
	Genome models.Genome  `json:"genome"`
	Owner  id.AccountID   `json:"owner"`
}

func toKittyResponse(kitty *models.Kitty, owner id.AccountID) KittyResponse {
	return KittyResponse{ID: kitty.ID, Genome: kitty.Genome, Owner: owner}
}

type InventoryResponse struct {
	Owner   id.AccountID     `json:"owner"`
	Kitties []models.Kitty `json:"kitties"`
}

type RegistryResponse struct {
	NextID        models.KittyID `json:"next_id"`
	MaxInventory  int            `json:"max_inventory"`
	ReserveAmount uint64         `json:"reserve_amount"`
	MaxKittyID    models.KittyID `json:"max_kitty_id"`
}
