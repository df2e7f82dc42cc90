package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type CheckoutService struct {
	cfg        *config.Config
	tx         repositories.TxManager
	cart       repositories.CartRepository
	users      repositories.UserRepository
	orders     repositories.OrderRepository
	programmes repositories.ProgrammeRepository
	pricer     *cartPricer
	coupons    *CouponService
	rewards    *RewardsService
	fx         *CurrencyService
	lifecycle  *OrderLifecycleService
	providers  map[models.PaymentProvider]PaymentProvider
	metrics    *Metrics
	now        func() time.Time
}

// NewCheckoutService accepts only the enabled providers; checkout with any
// other provider is rejected.
func NewCheckoutService(
	cfg *config.Config,
	tx repositories.TxManager,
	cart repositories.CartRepository,
	users repositories.UserRepository,
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	programmes repositories.ProgrammeRepository,
	plans repositories.SubscriptionPlanRepository,
	coupons *CouponService,
	rewards *RewardsService,
	fx *CurrencyService,
	lifecycle *OrderLifecycleService,
	metrics *Metrics,
	providers ...PaymentProvider,
) *CheckoutService {
	byName := make(map[models.PaymentProvider]PaymentProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &CheckoutService{
		cfg:        cfg,
		tx:         tx,
		cart:       cart,
		users:      users,
		orders:     orders,
		programmes: programmes,
		pricer:     &cartPricer{products: products, programmes: programmes, plans: plans},
		coupons:    coupons,
		rewards:    rewards,
		fx:         fx,
		lifecycle:  lifecycle,
		providers:  byName,
		metrics:    metrics,
		now:        time.Now,
	}
}

type checkoutQuote struct {
	buyer          *models.User
	cart           *PricedCart
	coupon         *models.Coupon
	couponDiscount int64
	points         int64
	pointsDiscount int64
	total          int64
	provider       PaymentProvider
	charge         int64
	rate           float64
	pointsToEarn   int64
}

func (q *checkoutQuote) toResponse(baseCurrency string) *dtos.QuoteResponse {
	resp := &dtos.QuoteResponse{
		Lines:               q.cart.lineResponses(),
		SubtotalCents:       q.cart.SubtotalCents,
		CouponDiscountCents: q.couponDiscount,
		PointsRedeemed:      q.points,
		PointsDiscountCents: q.pointsDiscount,
		TotalCents:          q.total,
		Currency:            baseCurrency,
		Provider:            q.provider.Name(),
		ChargeAmountCents:   q.charge,
		ChargeCurrency:      q.provider.Currency(),
		FXRate:              q.rate,
		PointsToEarn:        q.pointsToEarn,
	}
	if q.coupon != nil {
		resp.CouponCode = utils.Ptr(q.coupon.Code)
	}
	return resp
}

func (s *CheckoutService) Quote(ctx context.Context, userID uuid.UUID, req dtos.QuoteRequest) (*dtos.QuoteResponse, error) {
	q, err := s.buildQuote(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return q.toResponse(s.cfg.BaseCurrency), nil
}

// ValidateCoupon checks a code against the user's current cart.
func (s *CheckoutService) ValidateCoupon(ctx context.Context, userID uuid.UUID, code string) (*dtos.ValidateCouponResponse, error) {
	priced, err := s.priceCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, discount, err := s.coupons.Validate(ctx, code, userID, priced.SubtotalCents)
	if err != nil {
		return nil, err
	}
	return &dtos.ValidateCouponResponse{
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		SubtotalCents: priced.SubtotalCents,
		DiscountCents: discount,
	}, nil
}

// Checkout creates a PENDING order, debits redeemed points and starts the
// provider payment. A provider failure moves the order to FAILED.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req dtos.CheckoutRequest) (*dtos.CheckoutResponse, error) {
	q, err := s.buildQuote(ctx, userID, req.QuoteRequest)
	if err != nil {
		return nil, err
	}
	if q.cart.HasPhysical && req.Shipping == nil {
		return nil, internal_utils.BadRequest(internal_utils.ErrShippingRequired, "Shipping details are required for physical products")
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:                  uuid.New(),
		UserID:              userID,
		Status:              models.OrderPending,
		SubtotalCents:       q.cart.SubtotalCents,
		CouponDiscountCents: q.couponDiscount,
		PointsDiscountCents: q.pointsDiscount,
		TotalCents:          q.total,
		Currency:            s.cfg.BaseCurrency,
		PointsRedeemed:      q.points,
		PaymentProvider:     q.provider.Name(),
		ChargeAmountCents:   q.charge,
		ChargeCurrency:      q.provider.Currency(),
		FXRate:              q.rate,
		Shipping:            req.Shipping.ToModel(),
		ExpiresAt:           now.Add(s.cfg.OrderPaymentTTL),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if q.coupon != nil {
		order.CouponID = uuidPtr(q.coupon.ID)
		order.CouponCode = utils.Ptr(q.coupon.Code)
	}
	for _, l := range q.cart.Lines {
		order.Items = append(order.Items, l.toOrderItem(order.ID))
	}

	logger := utils.Logger.WithFields(logrus.Fields{
		"orderID":  order.ID,
		"userID":   userID,
		"provider": order.PaymentProvider,
	})

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		return s.rewards.Debit(ctx, userID, order.ID, order.PointsRedeemed)
	})
	if err != nil {
		s.metrics.checkout(string(order.PaymentProvider), "rejected")
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, utils.InternalError("Failed to create order", err)
	}
	order.RowVersion = 1

	session, err := q.provider.StartPayment(ctx, order, q.buyer)
	if err != nil {
		logger.WithError(err).Error("Payment provider failed to start payment")
		if _, ferr := s.lifecycle.Apply(ctx, TransitionRequest{
			OrderID:       order.ID,
			Outcome:       OutcomeFailed,
			FailureReason: utils.Ptr("payment provider unavailable"),
			Source:        "checkout",
		}); ferr != nil {
			logger.WithError(ferr).Error("Failed to mark order FAILED after provider error")
		}
		s.metrics.checkout(string(order.PaymentProvider), "provider_error")
		return nil, internal_utils.ExternalFailure("Could not start payment, please try again", err)
	}

	// Webhooks still find the order through its merchant reference if this
	// write is lost.
	if err := s.orders.UpdateWithRetry(ctx, order.ID, func(o *models.Order) error {
		o.ProviderOrderID = session.ProviderOrderID
		o.ProviderPaymentID = session.ProviderPaymentID
		o.CheckoutURL = session.CheckoutURL
		return nil
	}); err != nil {
		logger.WithError(err).Error("Failed to persist provider references")
	}

	s.metrics.checkout(string(order.PaymentProvider), "started")
	logger.WithField("chargeCents", order.ChargeAmountCents).Info("Checkout started")

	return &dtos.CheckoutResponse{
		OrderID:           order.ID,
		Provider:          order.PaymentProvider,
		CheckoutURL:       session.CheckoutURL,
		ClientSecret:      session.ClientSecret,
		TotalCents:        order.TotalCents,
		Currency:          order.Currency,
		ChargeAmountCents: order.ChargeAmountCents,
		ChargeCurrency:    order.ChargeCurrency,
		ExpiresAt:         order.ExpiresAt,
	}, nil
}

func (s *CheckoutService) priceCart(ctx context.Context, userID uuid.UUID) (*PricedCart, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to load cart", err)
	}
	if len(items) == 0 {
		return nil, internal_utils.BadRequest(internal_utils.ErrCartEmpty, "Your cart is empty")
	}
	priced, err := s.pricer.Price(ctx, items)
	if err != nil {
		return nil, utils.InternalError("Failed to price cart", err)
	}
	if len(priced.Unavailable) > 0 {
		names := make([]string, 0, len(priced.Unavailable))
		for _, l := range priced.Unavailable {
			names = append(names, l.ItemID.String())
		}
		return nil, utils.NewAppError(http.StatusConflict, internal_utils.ErrItemUnavailable.Error(),
			"Some cart items are no longer available: "+strings.Join(names, ", "), internal_utils.ErrItemUnavailable)
	}
	return priced, nil
}

func (s *CheckoutService) buildQuote(ctx context.Context, userID uuid.UUID, req dtos.QuoteRequest) (*checkoutQuote, error) {
	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, internal_utils.BadRequest(internal_utils.ErrProviderDisabled, "Payment provider is not available")
	}

	priced, err := s.priceCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, l := range priced.Lines {
		switch l.ItemType {
		case models.ItemProduct:
			if l.Quantity > l.Stock {
				return nil, internal_utils.Conflict(internal_utils.ErrInsufficientStock, "Not enough stock for "+l.Name)
			}
		case models.ItemProgramme:
			owned, err := s.programmes.UserOwns(ctx, userID, l.ItemID)
			if err != nil {
				return nil, utils.InternalError("Failed to check programme ownership", err)
			}
			if owned {
				return nil, internal_utils.Conflict(internal_utils.ErrProgrammeOwned, "You already own "+l.Name)
			}
		}
	}

	buyer, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to load user", err)
	}
	if buyer == nil {
		return nil, utils.NotFoundError("User not found")
	}

	q := &checkoutQuote{buyer: buyer, cart: priced, provider: provider, points: req.Points}
	if code := utils.Val(req.CouponCode); strings.TrimSpace(code) != "" {
		if q.coupon, q.couponDiscount, err = s.coupons.Validate(ctx, code, userID, priced.SubtotalCents); err != nil {
			return nil, err
		}
	}

	eligible := priced.SubtotalCents - q.couponDiscount
	if q.pointsDiscount, err = s.rewards.RedeemValue(req.Points, eligible, buyer.LoyaltyPoints); err != nil {
		return nil, err
	}
	q.total = eligible - q.pointsDiscount
	if q.total <= 0 {
		return nil, internal_utils.BadRequest(internal_utils.ErrZeroTotalNotSupported, "Orders must have a positive total")
	}

	if q.charge, q.rate, err = s.fx.Convert(ctx, q.total, s.cfg.BaseCurrency, provider.Currency()); err != nil {
		return nil, err
	}
	q.pointsToEarn = s.rewards.PointsToEarn(q.total)
	return q, nil
}
