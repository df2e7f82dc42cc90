package dtos

import (
	"github.com/google/uuid"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type AddCartItemRequest struct {
	ItemType models.ItemType `json:"item_type" validate:"required,oneof=PRODUCT PROGRAMME SUBSCRIPTION"`
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	Quantity int             `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

type CartLineResponse struct {
	ID             uuid.UUID       `json:"id"`
	ItemType       models.ItemType `json:"item_type"`
	ItemID         uuid.UUID       `json:"item_id"`
	Name           string          `json:"name"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	Quantity       int             `json:"quantity"`
	LineTotalCents int64           `json:"line_total_cents"`
}

type CartResponse struct {
	Items         []CartLineResponse `json:"items"`
	Unavailable   []CartLineResponse `json:"unavailable,omitempty"`
	SubtotalCents int64              `json:"subtotal_cents"`
	Currency      string             `json:"currency"`
}
