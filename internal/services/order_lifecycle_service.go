package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// PaymentOutcome is a provider result normalized across gateways.
type PaymentOutcome string

const (
	OutcomePending   PaymentOutcome = "PENDING"
	OutcomePaid      PaymentOutcome = "PAID"
	OutcomeFailed    PaymentOutcome = "FAILED"
	OutcomeCancelled PaymentOutcome = "CANCELLED"
	OutcomeRefunded  PaymentOutcome = "REFUNDED"
)

// TargetStatus maps an outcome to the order status it drives. PENDING
// drives nothing.
func (o PaymentOutcome) TargetStatus() (models.OrderStatus, bool) {
	switch o {
	case OutcomePaid:
		return models.OrderPaid, true
	case OutcomeFailed:
		return models.OrderFailed, true
	case OutcomeCancelled:
		return models.OrderCancelled, true
	case OutcomeRefunded:
		return models.OrderRefunded, true
	}
	return "", false
}

// OrderNotifier is told about transitions after they commit.
type OrderNotifier interface {
	OrderPaid(ctx context.Context, order *models.Order, user *models.User)
	OrderFailed(ctx context.Context, order *models.Order, user *models.User)
	OrderRefunded(ctx context.Context, order *models.Order, user *models.User)
}

type TransitionRequest struct {
	OrderID               uuid.UUID
	Outcome               PaymentOutcome
	ProviderTransactionID *string
	// FailureReason is kept on FAILED, CANCELLED and REFUNDED orders.
	FailureReason *string
	// FlagReason marks the order for manual review when non-empty.
	FlagReason string
	Source     string
}

type TransitionResult struct {
	Order   *models.Order
	From    models.OrderStatus
	Applied bool
}

var errTransitionRaced = errors.New("order status changed concurrently")

// OrderLifecycleService is the only writer of order status. Every
// transition and its side effects commit together.
type OrderLifecycleService struct {
	tx         repositories.TxManager
	orders     repositories.OrderRepository
	products   repositories.ProductRepository
	coupons    repositories.CouponRepository
	programmes repositories.ProgrammeRepository
	plans      repositories.SubscriptionPlanRepository
	subs       repositories.UserSubscriptionRepository
	cart       repositories.CartRepository
	users      repositories.UserRepository
	rewards    *RewardsService
	notifier   OrderNotifier
	metrics    *Metrics
	now        func() time.Time
}

func NewOrderLifecycleService(
	tx repositories.TxManager,
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	coupons repositories.CouponRepository,
	programmes repositories.ProgrammeRepository,
	plans repositories.SubscriptionPlanRepository,
	subs repositories.UserSubscriptionRepository,
	cart repositories.CartRepository,
	users repositories.UserRepository,
	rewards *RewardsService,
	notifier OrderNotifier,
	metrics *Metrics,
) *OrderLifecycleService {
	return &OrderLifecycleService{
		tx:         tx,
		orders:     orders,
		products:   products,
		coupons:    coupons,
		programmes: programmes,
		plans:      plans,
		subs:       subs,
		cart:       cart,
		users:      users,
		rewards:    rewards,
		notifier:   notifier,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Apply runs a transition in its own transaction and notifies afterwards.
// A transition the status machine forbids is not an error; the result
// reports Applied=false.
func (s *OrderLifecycleService) Apply(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	var res *TransitionResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.applyInTx(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res)
	return res, nil
}

func (s *OrderLifecycleService) applyInTx(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	logger := utils.Logger.WithFields(logrus.Fields{
		"orderID": req.OrderID,
		"outcome": req.Outcome,
		"source":  req.Source,
	})

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrOrderNotFound, "Order not found")
	}
	res := &TransitionResult{Order: order, From: order.Status}

	target, ok := req.Outcome.TargetStatus()
	if !ok {
		logger.Info("Outcome drives no transition")
		return res, nil
	}
	if !order.Status.CanTransition(target) {
		logger.WithField("status", order.Status).Info("Ignoring transition not allowed from current status")
		return res, nil
	}

	now := s.now()
	var updated *models.Order
	err = s.orders.UpdateWithRetry(ctx, order.ID, func(o *models.Order) error {
		if !o.Status.CanTransition(target) {
			return errTransitionRaced
		}
		o.Status = target
		switch target {
		case models.OrderPaid:
			o.PaidAt = &now
			o.PointsEarned = s.rewards.PointsToEarn(o.TotalCents)
		case models.OrderFailed, models.OrderCancelled, models.OrderRefunded:
			if req.FailureReason != nil {
				o.FailureReason = req.FailureReason
			}
		}
		if req.ProviderTransactionID != nil {
			o.ProviderTransactionID = req.ProviderTransactionID
		}
		if req.FlagReason != "" {
			o.FlaggedForReview = true
		}
		updated = o
		return nil
	})
	if errors.Is(err, errTransitionRaced) {
		logger.Info("Order moved concurrently; transition skipped")
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	updated.Items = order.Items
	if req.FlagReason != "" {
		logger.WithField("reason", req.FlagReason).Warn("Order flagged for review")
	}

	switch target {
	case models.OrderPaid:
		err = s.fulfil(ctx, updated)
	case models.OrderFailed, models.OrderCancelled:
		err = s.rewards.Restore(ctx, updated)
	case models.OrderRefunded:
		err = s.unwind(ctx, updated)
	}
	if err != nil {
		return nil, err
	}

	logger.WithField("from", order.Status).Info("Order transition applied")
	return &TransitionResult{Order: updated, From: order.Status, Applied: true}, nil
}

// fulfil grants everything a paid order bought. Stock or coupon shortfalls
// do not undo the payment; they flag the order instead.
func (s *OrderLifecycleService) fulfil(ctx context.Context, o *models.Order) error {
	now := s.now()
	var flags []string

	for i := range o.Items {
		it := &o.Items[i]
		switch it.ItemType {
		case models.ItemProduct:
			if _, err := s.products.AdjustStock(ctx, it.ItemID, -it.Quantity); err != nil {
				if !errors.Is(err, repositories.ErrInsufficientStock) {
					return err
				}
				flags = append(flags, "insufficient stock for "+it.Name)
				continue
			}
			if err := s.orders.SetItemStockDeducted(ctx, it.ID, true); err != nil {
				return err
			}
			it.StockDeducted = true
		case models.ItemProgramme:
			if err := s.programmes.GrantToUser(ctx, &models.UserProgramme{
				UserID:      o.UserID,
				ProgrammeID: it.ItemID,
				OrderID:     o.ID,
				GrantedAt:   now,
			}); err != nil {
				return err
			}
		case models.ItemSubscription:
			flagged, err := s.startSubscription(ctx, o, it.ItemID, now)
			if err != nil {
				return err
			}
			if flagged != "" {
				flags = append(flags, flagged)
			}
		}
	}

	if o.CouponID != nil {
		err := s.coupons.Redeem(ctx, &models.CouponRedemption{
			ID:       uuid.New(),
			CouponID: *o.CouponID,
			UserID:   o.UserID,
			OrderID:  o.ID,
		})
		if errors.Is(err, repositories.ErrCouponExhausted) {
			flags = append(flags, "coupon usage limit reached at payment time")
		} else if err != nil {
			return err
		}
	}

	if err := s.rewards.Earn(ctx, o); err != nil {
		return err
	}
	if err := s.cart.Clear(ctx, o.UserID); err != nil {
		return err
	}

	if len(flags) > 0 && !o.FlaggedForReview {
		utils.Logger.WithField("orderID", o.ID).WithField("reasons", flags).Warn("Paid order flagged for review")
		if err := s.orders.UpdateWithRetry(ctx, o.ID, func(cur *models.Order) error {
			cur.FlaggedForReview = true
			return nil
		}); err != nil {
			return err
		}
		o.FlaggedForReview = true
		o.RowVersion++
	}
	return nil
}

// startSubscription stacks a new period after any active one for the plan.
func (s *OrderLifecycleService) startSubscription(ctx context.Context, o *models.Order, planID uuid.UUID, now time.Time) (string, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return "", err
	}
	if plan == nil {
		return "subscription plan no longer exists", nil
	}

	start := now
	end, err := s.subs.LatestActiveEnd(ctx, o.UserID, planID)
	if err != nil {
		return "", err
	}
	if end != nil && end.After(now) {
		start = *end
	}
	return "", s.subs.Create(ctx, &models.UserSubscription{
		ID:       uuid.New(),
		UserID:   o.UserID,
		PlanID:   planID,
		OrderID:  o.ID,
		Status:   models.SubscriptionActive,
		StartsAt: start,
		EndsAt:   start.AddDate(0, 0, plan.DurationDays),
	})
}

// unwind reverses fulfil for a refund. Only lines whose units were taken
// at payment go back to stock.
func (s *OrderLifecycleService) unwind(ctx context.Context, o *models.Order) error {
	for i := range o.Items {
		it := &o.Items[i]
		if it.ItemType != models.ItemProduct || !it.StockDeducted {
			continue
		}
		if _, err := s.products.AdjustStock(ctx, it.ItemID, it.Quantity); err != nil {
			return err
		}
		if err := s.orders.SetItemStockDeducted(ctx, it.ID, false); err != nil {
			return err
		}
		it.StockDeducted = false
	}

	if err := s.rewards.Restore(ctx, o); err != nil {
		return err
	}
	if err := s.rewards.Reverse(ctx, o); err != nil {
		return err
	}
	if _, err := s.subs.CancelByOrder(ctx, o.ID); err != nil {
		return err
	}
	if _, err := s.programmes.RevokeForOrder(ctx, o.ID); err != nil {
		return err
	}
	return nil
}

func (s *OrderLifecycleService) afterCommit(ctx context.Context, res *TransitionResult) {
	if res == nil || !res.Applied {
		return
	}
	s.metrics.transition(string(res.Order.Status))
	if s.notifier == nil {
		return
	}

	user, err := s.users.GetByID(ctx, res.Order.UserID)
	if err != nil || user == nil {
		utils.Logger.WithError(err).WithField("orderID", res.Order.ID).Warn("Could not load buyer for notification")
		return
	}
	switch res.Order.Status {
	case models.OrderPaid:
		s.notifier.OrderPaid(ctx, res.Order, user)
	case models.OrderFailed, models.OrderCancelled:
		s.notifier.OrderFailed(ctx, res.Order, user)
	case models.OrderRefunded:
		s.notifier.OrderRefunded(ctx, res.Order, user)
	}
}
