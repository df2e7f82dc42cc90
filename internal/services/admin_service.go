package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	shared_dtos "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-dtos"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

var errStaleRowVersion = errors.New("stale row_version")

type AdminService struct {
	cfg        *config.Config
	tx         repositories.TxManager
	products   repositories.ProductRepository
	programmes repositories.ProgrammeRepository
	plans      repositories.SubscriptionPlanRepository
	coupons    repositories.CouponRepository
	orders     repositories.OrderRepository
	auditRepo  repositories.AdminAuditLogRepository
	rewards    *RewardsService
	lifecycle  *OrderLifecycleService
	now        func() time.Time
}

func NewAdminService(
	cfg *config.Config,
	tx repositories.TxManager,
	products repositories.ProductRepository,
	programmes repositories.ProgrammeRepository,
	plans repositories.SubscriptionPlanRepository,
	coupons repositories.CouponRepository,
	orders repositories.OrderRepository,
	auditRepo repositories.AdminAuditLogRepository,
	rewards *RewardsService,
	lifecycle *OrderLifecycleService,
) *AdminService {
	return &AdminService{
		cfg:        cfg,
		tx:         tx,
		products:   products,
		programmes: programmes,
		plans:      plans,
		coupons:    coupons,
		orders:     orders,
		auditRepo:  auditRepo,
		rewards:    rewards,
		lifecycle:  lifecycle,
		now:        time.Now,
	}
}

func (s *AdminService) logAudit(ctx context.Context, adminID, targetID uuid.UUID, action models.AuditAction, targetType models.AuditTargetType, details any) {
	var detailsJSON *json.RawMessage
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			raw := json.RawMessage(b)
			detailsJSON = &raw
		}
	}
	if err := s.auditRepo.Create(ctx, &models.AdminAuditLog{
		ID:         uuid.New(),
		AdminID:    adminID,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
		Details:    detailsJSON,
	}); err != nil {
		utils.Logger.WithError(err).WithField("targetID", targetID).Error("Failed to write admin audit log")
	}
}

// updateError maps UpdateWithRetry failures for admin edits.
func updateError(err error, what string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return utils.NotFoundError(what + " not found")
	case errors.Is(err, errStaleRowVersion), errors.Is(err, repositories.ErrContention):
		return utils.NewAppError(http.StatusConflict, utils.ErrCodeRowVersionConflict,
			what+" was modified by someone else; reload and retry", err)
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.InternalError("Failed to update "+what, err)
}

func checkVersion(current, expected int64) error {
	if current != expected {
		return errStaleRowVersion
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// ---------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------

func (s *AdminService) ListProducts(ctx context.Context, category, search string, limit, offset int) (*shared_dtos.Page[*models.Product], error) {
	limit, offset = clampPage(limit, offset, constants.DefaultPageLimit, constants.MaxPageLimit)
	items, err := s.products.List(ctx, repositories.ProductFilter{
		Category:        category,
		Search:          search,
		IncludeInactive: true,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return nil, utils.InternalError("Failed to list products", err)
	}
	if items == nil {
		items = []*models.Product{}
	}
	return &shared_dtos.Page[*models.Product]{Data: items, Limit: limit, Offset: offset}, nil
}

func (s *AdminService) CreateProduct(ctx context.Context, adminID uuid.UUID, req dtos.AdminCreateProductRequest) (*models.Product, error) {
	p := &models.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		IsActive:    boolOr(req.IsActive, true),
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, utils.InternalError("Failed to create product", err)
	}
	p.RowVersion = 1
	s.logAudit(ctx, adminID, p.ID, models.AuditCreate, models.TargetProduct, p)
	return p, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, adminID, id uuid.UUID, req dtos.AdminUpdateProductRequest) (*models.Product, error) {
	var updated *models.Product
	err := s.products.UpdateWithRetry(ctx, id, func(p *models.Product) error {
		if err := checkVersion(p.RowVersion, req.RowVersion); err != nil {
			return err
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Category != nil {
			p.Category = *req.Category
		}
		if req.PriceCents != nil {
			p.PriceCents = *req.PriceCents
		}
		if req.ImageURL != nil {
			p.ImageURL = req.ImageURL
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, updateError(err, "Product")
	}
	s.logAudit(ctx, adminID, id, models.AuditUpdate, models.TargetProduct, updated)
	return updated, nil
}

// DeleteProduct deactivates; order history keeps referencing the row.
func (s *AdminService) DeleteProduct(ctx context.Context, adminID, id uuid.UUID) error {
	err := s.products.UpdateWithRetry(ctx, id, func(p *models.Product) error {
		p.IsActive = false
		return nil
	})
	if err != nil {
		return updateError(err, "Product")
	}
	s.logAudit(ctx, adminID, id, models.AuditDelete, models.TargetProduct, nil)
	return nil
}

func (s *AdminService) AdjustStock(ctx context.Context, adminID, id uuid.UUID, req dtos.AdminAdjustStockRequest) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, utils.InternalError("Failed to load product", err)
	}
	if p == nil {
		return nil, utils.NotFoundError("Product not found")
	}

	stock, err := s.products.AdjustStock(ctx, id, req.Delta)
	if errors.Is(err, repositories.ErrInsufficientStock) {
		return nil, internal_utils.Conflict(internal_utils.ErrStockWouldGoNegative, "Stock cannot go below zero")
	}
	if err != nil {
		return nil, utils.InternalError("Failed to adjust stock", err)
	}
	s.logAudit(ctx, adminID, id, models.AuditUpdate, models.TargetProduct, map[string]any{
		"stock_before": p.Stock,
		"stock_after":  stock,
		"delta":        req.Delta,
		"reason":       utils.Val(req.Reason),
	})
	p.Stock = stock
	p.RowVersion++
	return p, nil
}

// ---------------------------------------------------------------------
// Programmes
// ---------------------------------------------------------------------

func (s *AdminService) ListProgrammes(ctx context.Context, level string) ([]*models.Programme, error) {
	items, err := s.programmes.List(ctx, level, true)
	if err != nil {
		return nil, utils.InternalError("Failed to list programmes", err)
	}
	if items == nil {
		items = []*models.Programme{}
	}
	return items, nil
}

func (s *AdminService) CreateProgramme(ctx context.Context, adminID uuid.UUID, req dtos.AdminCreateProgrammeRequest) (*models.Programme, error) {
	p := &models.Programme{
		ID:            uuid.New(),
		Title:         req.Title,
		Description:   req.Description,
		Level:         req.Level,
		DurationWeeks: req.DurationWeeks,
		PriceCents:    req.PriceCents,
		ImageURL:      req.ImageURL,
		IsActive:      boolOr(req.IsActive, true),
	}
	if err := s.programmes.Create(ctx, p); err != nil {
		return nil, utils.InternalError("Failed to create programme", err)
	}
	p.RowVersion = 1
	s.logAudit(ctx, adminID, p.ID, models.AuditCreate, models.TargetProgramme, p)
	return p, nil
}

func (s *AdminService) UpdateProgramme(ctx context.Context, adminID, id uuid.UUID, req dtos.AdminUpdateProgrammeRequest) (*models.Programme, error) {
	var updated *models.Programme
	err := s.programmes.UpdateWithRetry(ctx, id, func(p *models.Programme) error {
		if err := checkVersion(p.RowVersion, req.RowVersion); err != nil {
			return err
		}
		if req.Title != nil {
			p.Title = *req.Title
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Level != nil {
			p.Level = *req.Level
		}
		if req.DurationWeeks != nil {
			p.DurationWeeks = *req.DurationWeeks
		}
		if req.PriceCents != nil {
			p.PriceCents = *req.PriceCents
		}
		if req.ImageURL != nil {
			p.ImageURL = req.ImageURL
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, updateError(err, "Programme")
	}
	s.logAudit(ctx, adminID, id, models.AuditUpdate, models.TargetProgramme, updated)
	return updated, nil
}

func (s *AdminService) DeleteProgramme(ctx context.Context, adminID, id uuid.UUID) error {
	err := s.programmes.UpdateWithRetry(ctx, id, func(p *models.Programme) error {
		p.IsActive = false
		return nil
	})
	if err != nil {
		return updateError(err, "Programme")
	}
	s.logAudit(ctx, adminID, id, models.AuditDelete, models.TargetProgramme, nil)
	return nil
}

// ---------------------------------------------------------------------
// Subscription plans
// ---------------------------------------------------------------------

func (s *AdminService) ListPlans(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	items, err := s.plans.List(ctx, true)
	if err != nil {
		return nil, utils.InternalError("Failed to list plans", err)
	}
	if items == nil {
		items = []*models.SubscriptionPlan{}
	}
	return items, nil
}

func (s *AdminService) CreatePlan(ctx context.Context, adminID uuid.UUID, req dtos.AdminCreatePlanRequest) (*models.SubscriptionPlan, error) {
	features := req.Features
	if features == nil {
		features = []string{}
	}
	p := &models.SubscriptionPlan{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		DurationDays: req.DurationDays,
		PriceCents:   req.PriceCents,
		Features:     features,
		IsActive:     boolOr(req.IsActive, true),
	}
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, utils.InternalError("Failed to create plan", err)
	}
	p.RowVersion = 1
	s.logAudit(ctx, adminID, p.ID, models.AuditCreate, models.TargetSubscriptionPlan, p)
	return p, nil
}

func (s *AdminService) UpdatePlan(ctx context.Context, adminID, id uuid.UUID, req dtos.AdminUpdatePlanRequest) (*models.SubscriptionPlan, error) {
	var updated *models.SubscriptionPlan
	err := s.plans.UpdateWithRetry(ctx, id, func(p *models.SubscriptionPlan) error {
		if err := checkVersion(p.RowVersion, req.RowVersion); err != nil {
			return err
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.DurationDays != nil {
			p.DurationDays = *req.DurationDays
		}
		if req.PriceCents != nil {
			p.PriceCents = *req.PriceCents
		}
		if req.Features != nil {
			p.Features = *req.Features
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, updateError(err, "Plan")
	}
	s.logAudit(ctx, adminID, id, models.AuditUpdate, models.TargetSubscriptionPlan, updated)
	return updated, nil
}

func (s *AdminService) DeletePlan(ctx context.Context, adminID, id uuid.UUID) error {
	err := s.plans.UpdateWithRetry(ctx, id, func(p *models.SubscriptionPlan) error {
		p.IsActive = false
		return nil
	})
	if err != nil {
		return updateError(err, "Plan")
	}
	s.logAudit(ctx, adminID, id, models.AuditDelete, models.TargetSubscriptionPlan, nil)
	return nil
}

// ---------------------------------------------------------------------
// Coupons
// ---------------------------------------------------------------------

func (s *AdminService) ListCoupons(ctx context.Context) ([]*models.Coupon, error) {
	items, err := s.coupons.List(ctx, true)
	if err != nil {
		return nil, utils.InternalError("Failed to list coupons", err)
	}
	if items == nil {
		items = []*models.Coupon{}
	}
	return items, nil
}

func (s *AdminService) CreateCoupon(ctx context.Context, adminID uuid.UUID, req dtos.AdminCreateCouponRequest) (*models.Coupon, error) {
	if req.DiscountType == models.DiscountPercent && req.DiscountValue > 100 {
		return nil, utils.NewAppError(http.StatusBadRequest, utils.ErrCodeValidation, "Percent discounts cannot exceed 100", nil)
	}
	if req.StartsAt != nil && req.ExpiresAt != nil && !req.ExpiresAt.After(*req.StartsAt) {
		return nil, utils.NewAppError(http.StatusBadRequest, utils.ErrCodeValidation, "expires_at must be after starts_at", nil)
	}
	perUser := req.PerUserLimit
	if perUser == 0 {
		perUser = 1
	}
	c := &models.Coupon{
		ID:               uuid.New(),
		Code:             repositories.NormalizeCouponCode(req.Code),
		DiscountType:     req.DiscountType,
		DiscountValue:    req.DiscountValue,
		MaxDiscountCents: req.MaxDiscountCents,
		MinOrderCents:    req.MinOrderCents,
		UsageLimit:       req.UsageLimit,
		PerUserLimit:     perUser,
		StartsAt:         req.StartsAt,
		ExpiresAt:        req.ExpiresAt,
		IsActive:         boolOr(req.IsActive, true),
	}
	if err := s.coupons.Create(ctx, c); err != nil {
		if isUniqueViolation(err) {
			return nil, internal_utils.Conflict(internal_utils.ErrCouponCodeExists, "A coupon with this code already exists")
		}
		return nil, utils.InternalError("Failed to create coupon", err)
	}
	c.RowVersion = 1
	s.logAudit(ctx, adminID, c.ID, models.AuditCreate, models.TargetCoupon, c)
	return c, nil
}

func (s *AdminService) UpdateCoupon(ctx context.Context, adminID, id uuid.UUID, req dtos.AdminUpdateCouponRequest) (*models.Coupon, error) {
	var updated *models.Coupon
	err := s.coupons.UpdateWithRetry(ctx, id, func(c *models.Coupon) error {
		if err := checkVersion(c.RowVersion, req.RowVersion); err != nil {
			return err
		}
		if req.DiscountValue != nil {
			if c.DiscountType == models.DiscountPercent && *req.DiscountValue > 100 {
				return utils.NewAppError(http.StatusBadRequest, utils.ErrCodeValidation, "Percent discounts cannot exceed 100", nil)
			}
			c.DiscountValue = *req.DiscountValue
		}
		if req.MaxDiscountCents != nil {
			c.MaxDiscountCents = req.MaxDiscountCents
		}
		if req.MinOrderCents != nil {
			c.MinOrderCents = *req.MinOrderCents
		}
		if req.UsageLimit != nil {
			c.UsageLimit = req.UsageLimit
		}
		if req.PerUserLimit != nil {
			c.PerUserLimit = *req.PerUserLimit
		}
		if req.StartsAt != nil {
			c.StartsAt = req.StartsAt
		}
		if req.ExpiresAt != nil {
			c.ExpiresAt = req.ExpiresAt
		}
		if req.IsActive != nil {
			c.IsActive = *req.IsActive
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, updateError(err, "Coupon")
	}
	s.logAudit(ctx, adminID, id, models.AuditUpdate, models.TargetCoupon, updated)
	return updated, nil
}

func (s *AdminService) DeactivateCoupon(ctx context.Context, adminID, id uuid.UUID) error {
	err := s.coupons.UpdateWithRetry(ctx, id, func(c *models.Coupon) error {
		c.IsActive = false
		return nil
	})
	if err != nil {
		return updateError(err, "Coupon")
	}
	s.logAudit(ctx, adminID, id, models.AuditDelete, models.TargetCoupon, nil)
	return nil
}

// ---------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------

func (s *AdminService) ListOrders(ctx context.Context, status models.OrderStatus, limit, offset int) (*shared_dtos.Page[*models.Order], error) {
	limit, offset = clampPage(limit, offset, constants.DefaultPageLimit, constants.MaxPageLimit)
	orders, err := s.orders.List(ctx, repositories.OrderFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, utils.InternalError("Failed to list orders", err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return &shared_dtos.Page[*models.Order]{Data: orders, Limit: limit, Offset: offset}, nil
}

func (s *AdminService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, utils.InternalError("Failed to load order", err)
	}
	if o == nil {
		return nil, utils.NotFoundError("Order not found")
	}
	return o, nil
}

// RefundOrder records a refund made outside the gateway webhooks.
func (s *AdminService) RefundOrder(ctx context.Context, adminID, id uuid.UUID, req dtos.AdminRefundOrderRequest) (*models.Order, error) {
	if _, err := s.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	res, err := s.lifecycle.Apply(ctx, TransitionRequest{
		OrderID:       id,
		Outcome:       OutcomeRefunded,
		FailureReason: req.Reason,
		Source:        "admin",
	})
	if err != nil {
		return nil, utils.InternalError("Failed to refund order", err)
	}
	if !res.Applied {
		return nil, internal_utils.Conflict(internal_utils.ErrInvalidTransition,
			"Only paid orders can be refunded (current status "+string(res.From)+")")
	}
	s.logAudit(ctx, adminID, id, models.AuditUpdate, models.TargetOrder, map[string]any{
		"from":   res.From,
		"to":     res.Order.Status,
		"reason": utils.Val(req.Reason),
	})
	return res.Order, nil
}

// ---------------------------------------------------------------------
// Users & dashboard
// ---------------------------------------------------------------------

func (s *AdminService) AdjustPoints(ctx context.Context, adminID, userID uuid.UUID, req dtos.AdminAdjustPointsRequest) (*dtos.AdminAdjustPointsResponse, error) {
	var txn *models.LoyaltyTransaction
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		txn, err = s.rewards.Adjust(ctx, userID, req.Delta, req.Note)
		return err
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, utils.InternalError("Failed to adjust points", err)
	}
	s.logAudit(ctx, adminID, userID, models.AuditUpdate, models.TargetUser, txn)
	return &dtos.AdminAdjustPointsResponse{Balance: txn.BalanceAfter, Transaction: txn}, nil
}

func (s *AdminService) Dashboard(ctx context.Context) (*dtos.DashboardResponse, error) {
	counts, err := s.orders.StatusCounts(ctx)
	if err != nil {
		return nil, utils.InternalError("Failed to count orders", err)
	}
	since := s.now().UTC().AddDate(0, 0, -constants.DashboardRevenueDays)
	revenue, paid, err := s.orders.RevenueSince(ctx, since)
	if err != nil {
		return nil, utils.InternalError("Failed to sum revenue", err)
	}
	lowStock, err := s.products.ListLowStock(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, utils.InternalError("Failed to list low stock products", err)
	}
	if lowStock == nil {
		lowStock = []*models.Product{}
	}
	if counts == nil {
		counts = map[models.OrderStatus]int64{}
	}
	for _, st := range []models.OrderStatus{
		models.OrderPending, models.OrderPaid, models.OrderFailed, models.OrderCancelled, models.OrderRefunded,
	} {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return &dtos.DashboardResponse{
		OrdersByStatus:    counts,
		RevenueCents:      revenue,
		PaidOrders:        paid,
		RevenueWindowDays: constants.DashboardRevenueDays,
		Currency:          s.cfg.BaseCurrency,
		LowStockThreshold: s.cfg.LowStockThreshold,
		LowStock:          lowStock,
	}, nil
}
