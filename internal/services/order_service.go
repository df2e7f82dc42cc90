package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	shared_dtos "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-dtos"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// OrderService is the customer's view of their orders and entitlements.
type OrderService struct {
	orders     repositories.OrderRepository
	subs       repositories.UserSubscriptionRepository
	plans      repositories.SubscriptionPlanRepository
	programmes repositories.ProgrammeRepository
	lifecycle  *OrderLifecycleService
}

func NewOrderService(
	orders repositories.OrderRepository,
	subs repositories.UserSubscriptionRepository,
	plans repositories.SubscriptionPlanRepository,
	programmes repositories.ProgrammeRepository,
	lifecycle *OrderLifecycleService,
) *OrderService {
	return &OrderService{
		orders:     orders,
		subs:       subs,
		plans:      plans,
		programmes: programmes,
		lifecycle:  lifecycle,
	}
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID, status models.OrderStatus, limit, offset int) (*shared_dtos.Page[*models.Order], error) {
	limit, offset = clampPage(limit, offset, constants.DefaultPageLimit, constants.MaxPageLimit)
	orders, err := s.orders.List(ctx, repositories.OrderFilter{
		UserID: &userID,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, utils.InternalError("Failed to list orders", err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return &shared_dtos.Page[*models.Order]{Data: orders, Limit: limit, Offset: offset}, nil
}

// GetMyOrder answers 404 for orders owned by someone else.
func (s *OrderService) GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, utils.InternalError("Failed to load order", err)
	}
	if o == nil || o.UserID != userID {
		return nil, utils.NotFoundError("Order not found")
	}
	return o, nil
}

// CancelMyOrder abandons a PENDING order and restores its points.
func (s *OrderService) CancelMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if _, err := s.GetMyOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}
	res, err := s.lifecycle.Apply(ctx, TransitionRequest{
		OrderID:       orderID,
		Outcome:       OutcomeCancelled,
		FailureReason: utils.Ptr("cancelled by customer"),
		Source:        "customer",
	})
	if err != nil {
		return nil, utils.InternalError("Failed to cancel order", err)
	}
	if !res.Applied {
		return nil, internal_utils.Conflict(internal_utils.ErrOrderNotCancellable, "Only pending orders can be cancelled")
	}
	return res.Order, nil
}

func (s *OrderService) ListMySubscriptions(ctx context.Context, userID uuid.UUID) ([]dtos.SubscriptionResponse, error) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to list subscriptions", err)
	}

	names := map[uuid.UUID]string{}
	out := make([]dtos.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		name, ok := names[sub.PlanID]
		if !ok {
			plan, err := s.plans.GetByID(ctx, sub.PlanID)
			if err != nil {
				return nil, utils.InternalError("Failed to load plan", err)
			}
			if plan != nil {
				name = plan.Name
			}
			names[sub.PlanID] = name
		}
		out = append(out, dtos.SubscriptionResponse{
			ID:       sub.ID,
			PlanID:   sub.PlanID,
			PlanName: name,
			OrderID:  sub.OrderID,
			Status:   sub.Status,
			StartsAt: sub.StartsAt,
			EndsAt:   sub.EndsAt,
		})
	}
	return out, nil
}

func (s *OrderService) ListMyProgrammes(ctx context.Context, userID uuid.UUID) ([]*models.Programme, error) {
	progs, err := s.programmes.ListOwnedByUser(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to list programmes", err)
	}
	if progs == nil {
		progs = []*models.Programme{}
	}
	return progs, nil
}
