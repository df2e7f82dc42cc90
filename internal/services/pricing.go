package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
)

// PricedLine is a cart line resolved against the live catalog.
type PricedLine struct {
	CartItemID     uuid.UUID
	ItemType       models.ItemType
	ItemID         uuid.UUID
	Name           string
	UnitPriceCents int64
	Quantity       int
	// Stock is only meaningful for products.
	Stock int
}

func (l PricedLine) LineTotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

func (l PricedLine) toResponse() dtos.CartLineResponse {
	return dtos.CartLineResponse{
		ID:             l.CartItemID,
		ItemType:       l.ItemType,
		ItemID:         l.ItemID,
		Name:           l.Name,
		UnitPriceCents: l.UnitPriceCents,
		Quantity:       l.Quantity,
		LineTotalCents: l.LineTotalCents(),
	}
}

func (l PricedLine) toOrderItem(orderID uuid.UUID) models.OrderItem {
	return models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		ItemType:       l.ItemType,
		ItemID:         l.ItemID,
		Name:           l.Name,
		UnitPriceCents: l.UnitPriceCents,
		Quantity:       l.Quantity,
	}
}

type PricedCart struct {
	Lines []PricedLine
	// Unavailable holds lines whose item is missing or inactive.
	Unavailable   []PricedLine
	SubtotalCents int64
	HasPhysical   bool
}

func (c *PricedCart) lineResponses() []dtos.CartLineResponse {
	out := make([]dtos.CartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, l.toResponse())
	}
	return out
}

type cartPricer struct {
	products   repositories.ProductRepository
	programmes repositories.ProgrammeRepository
	plans      repositories.SubscriptionPlanRepository
}

func (p *cartPricer) Price(ctx context.Context, items []*models.CartItem) (*PricedCart, error) {
	var productIDs, programmeIDs []uuid.UUID
	for _, it := range items {
		switch it.ItemType {
		case models.ItemProduct:
			productIDs = append(productIDs, it.ItemID)
		case models.ItemProgramme:
			programmeIDs = append(programmeIDs, it.ItemID)
		}
	}

	products := map[uuid.UUID]*models.Product{}
	if len(productIDs) > 0 {
		var err error
		if products, err = p.products.GetByIDs(ctx, productIDs); err != nil {
			return nil, err
		}
	}
	programmes := map[uuid.UUID]*models.Programme{}
	if len(programmeIDs) > 0 {
		var err error
		if programmes, err = p.programmes.GetByIDs(ctx, programmeIDs); err != nil {
			return nil, err
		}
	}

	out := &PricedCart{}
	for _, it := range items {
		line := PricedLine{
			CartItemID: it.ID,
			ItemType:   it.ItemType,
			ItemID:     it.ItemID,
			Quantity:   it.Quantity,
		}
		available := false

		switch it.ItemType {
		case models.ItemProduct:
			if prod := products[it.ItemID]; prod != nil {
				line.Name, line.UnitPriceCents, line.Stock = prod.Name, prod.PriceCents, prod.Stock
				available = prod.IsActive
			}
		case models.ItemProgramme:
			if prog := programmes[it.ItemID]; prog != nil {
				line.Name, line.UnitPriceCents = prog.Title, prog.PriceCents
				available = prog.IsActive
			}
			line.Quantity = 1
		case models.ItemSubscription:
			plan, err := p.plans.GetByID(ctx, it.ItemID)
			if err != nil {
				return nil, err
			}
			if plan != nil {
				line.Name, line.UnitPriceCents = plan.Name, plan.PriceCents
				available = plan.IsActive
			}
			line.Quantity = 1
		}

		if !available {
			out.Unavailable = append(out.Unavailable, line)
			continue
		}
		out.Lines = append(out.Lines, line)
		out.SubtotalCents += line.LineTotalCents()
		if line.ItemType == models.ItemProduct {
			out.HasPhysical = true
		}
	}
	return out, nil
}
