package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type CartService struct {
	cfg        *config.Config
	cart       repositories.CartRepository
	products   repositories.ProductRepository
	programmes repositories.ProgrammeRepository
	plans      repositories.SubscriptionPlanRepository
	pricer     *cartPricer
}

func NewCartService(
	cfg *config.Config,
	cart repositories.CartRepository,
	products repositories.ProductRepository,
	programmes repositories.ProgrammeRepository,
	plans repositories.SubscriptionPlanRepository,
) *CartService {
	return &CartService{
		cfg:        cfg,
		cart:       cart,
		products:   products,
		programmes: programmes,
		plans:      plans,
		pricer:     &cartPricer{products: products, programmes: programmes, plans: plans},
	}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*dtos.CartResponse, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to load cart", err)
	}
	priced, err := s.pricer.Price(ctx, items)
	if err != nil {
		return nil, utils.InternalError("Failed to price cart", err)
	}

	resp := &dtos.CartResponse{
		Items:         priced.lineResponses(),
		SubtotalCents: priced.SubtotalCents,
		Currency:      s.cfg.BaseCurrency,
	}
	for _, l := range priced.Unavailable {
		resp.Unavailable = append(resp.Unavailable, l.toResponse())
	}
	return resp, nil
}

func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req dtos.AddCartItemRequest) (*dtos.CartResponse, error) {
	logger := utils.Logger.WithFields(logrus.Fields{"userID": userID, "itemType": req.ItemType, "itemID": req.ItemID})

	if !req.ItemType.Valid() {
		return nil, internal_utils.BadRequest(internal_utils.ErrInvalidItemType, "Unknown item type")
	}
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}

	existing, err := s.cart.Find(ctx, userID, req.ItemType, req.ItemID)
	if err != nil {
		return nil, utils.InternalError("Failed to load cart line", err)
	}

	switch req.ItemType {
	case models.ItemProduct:
		if existing != nil {
			qty += existing.Quantity
		}
		if qty > constants.MaxCartLineQuantity {
			return nil, internal_utils.BadRequest(internal_utils.ErrInsufficientStock,
				fmt.Sprintf("At most %d units per line", constants.MaxCartLineQuantity))
		}
		if err := s.checkProduct(ctx, req.ItemID, qty); err != nil {
			return nil, err
		}
	case models.ItemProgramme:
		if err := s.checkProgramme(ctx, userID, req.ItemID); err != nil {
			return nil, err
		}
		qty = 1
	case models.ItemSubscription:
		plan, err := s.plans.GetByID(ctx, req.ItemID)
		if err != nil {
			return nil, utils.InternalError("Failed to load plan", err)
		}
		if plan == nil || !plan.IsActive {
			return nil, internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrItemUnavailable, "Plan not available")
		}
		qty = 1
	}

	line := &models.CartItem{
		ID:       uuid.New(),
		UserID:   userID,
		ItemType: req.ItemType,
		ItemID:   req.ItemID,
		Quantity: qty,
	}
	if err := s.cart.Upsert(ctx, line); err != nil {
		return nil, utils.InternalError("Failed to save cart line", err)
	}
	logger.WithField("quantity", qty).Info("Cart line saved")
	return s.GetCart(ctx, userID)
}

// UpdateItem sets a line's quantity; zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, lineID uuid.UUID, qty int) (*dtos.CartResponse, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, lineID)
	}

	line, err := s.cart.GetByID(ctx, userID, lineID)
	if err != nil {
		return nil, utils.InternalError("Failed to load cart line", err)
	}
	if line == nil {
		return nil, internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrCartLineNotFound, "Cart line not found")
	}

	if line.ItemType.IsSingleUnit() {
		qty = 1
	} else {
		if qty > constants.MaxCartLineQuantity {
			return nil, internal_utils.BadRequest(internal_utils.ErrInsufficientStock,
				fmt.Sprintf("At most %d units per line", constants.MaxCartLineQuantity))
		}
		if err := s.checkProduct(ctx, line.ItemID, qty); err != nil {
			return nil, err
		}
	}

	ok, err := s.cart.UpdateQuantity(ctx, userID, lineID, qty)
	if err != nil {
		return nil, utils.InternalError("Failed to update cart line", err)
	}
	if !ok {
		return nil, internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrCartLineNotFound, "Cart line not found")
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*dtos.CartResponse, error) {
	ok, err := s.cart.Remove(ctx, userID, lineID)
	if err != nil {
		return nil, utils.InternalError("Failed to remove cart line", err)
	}
	if !ok {
		return nil, internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrCartLineNotFound, "Cart line not found")
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.cart.Clear(ctx, userID); err != nil {
		return utils.InternalError("Failed to clear cart", err)
	}
	return nil
}

func (s *CartService) checkProduct(ctx context.Context, id uuid.UUID, qty int) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return utils.InternalError("Failed to load product", err)
	}
	if p == nil || !p.IsActive {
		return internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrItemUnavailable, "Product not available")
	}
	if qty > p.Stock {
		return internal_utils.Conflict(internal_utils.ErrInsufficientStock,
			fmt.Sprintf("Only %d of %s left in stock", p.Stock, p.Name))
	}
	return nil
}

func (s *CartService) checkProgramme(ctx context.Context, userID, id uuid.UUID) error {
	p, err := s.programmes.GetByID(ctx, id)
	if err != nil {
		return utils.InternalError("Failed to load programme", err)
	}
	if p == nil || !p.IsActive {
		return internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrItemUnavailable, "Programme not available")
	}
	owned, err := s.programmes.UserOwns(ctx, userID, id)
	if err != nil {
		return utils.InternalError("Failed to check programme ownership", err)
	}
	if owned {
		return internal_utils.Conflict(internal_utils.ErrProgrammeOwned, "You already own this programme")
	}
	return nil
}
