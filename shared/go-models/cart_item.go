package models

import (
	"time"

	"github.com/google/uuid"
)

type ItemType string

const (
	ItemProduct      ItemType = "PRODUCT"
	ItemProgramme    ItemType = "PROGRAMME"
	ItemSubscription ItemType = "SUBSCRIPTION"
)

// IsSingleUnit reports whether quantity is fixed at one for this item type.
func (t ItemType) IsSingleUnit() bool {
	return t == ItemProgramme || t == ItemSubscription
}

func (t ItemType) Valid() bool {
	switch t {
	case ItemProduct, ItemProgramme, ItemSubscription:
		return true
	}
	return false
}

type CartItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ItemType  ItemType  `json:"item_type"`
	ItemID    uuid.UUID `json:"item_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
