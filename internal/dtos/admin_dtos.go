package dtos

import (
	"time"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

// Update requests carry the row_version the admin last saw; a stale value
// is rejected with 409 row_version_conflict.

type AdminCreateProductRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Category    string  `json:"category" validate:"required,max=100"`
	PriceCents  int64   `json:"price_cents" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"min=0"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type AdminUpdateProductRequest struct {
	RowVersion  int64   `json:"row_version" validate:"required,gt=0"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    *string `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	PriceCents  *int64  `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type AdminAdjustStockRequest struct {
	Delta  int     `json:"delta" validate:"required,ne=0"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type AdminCreateProgrammeRequest struct {
	Title         string                `json:"title" validate:"required,min=1,max=200"`
	Description   string                `json:"description" validate:"max=5000"`
	Level         models.ProgrammeLevel `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	DurationWeeks int                   `json:"duration_weeks" validate:"required,gt=0,lte=104"`
	PriceCents    int64                 `json:"price_cents" validate:"required,gt=0"`
	ImageURL      *string               `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive      *bool                 `json:"is_active,omitempty"`
}

type AdminUpdateProgrammeRequest struct {
	RowVersion    int64                  `json:"row_version" validate:"required,gt=0"`
	Title         *string                `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string                `json:"description,omitempty" validate:"omitempty,max=5000"`
	Level         *models.ProgrammeLevel `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationWeeks *int                   `json:"duration_weeks,omitempty" validate:"omitempty,gt=0,lte=104"`
	PriceCents    *int64                 `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	ImageURL      *string                `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive      *bool                  `json:"is_active,omitempty"`
}

type AdminCreatePlanRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	DurationDays int      `json:"duration_days" validate:"required,gt=0,lte=3660"`
	PriceCents   int64    `json:"price_cents" validate:"required,gt=0"`
	Features     []string `json:"features" validate:"omitempty,dive,min=1,max=200"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

type AdminUpdatePlanRequest struct {
	RowVersion   int64     `json:"row_version" validate:"required,gt=0"`
	Name         *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	DurationDays *int      `json:"duration_days,omitempty" validate:"omitempty,gt=0,lte=3660"`
	PriceCents   *int64    `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	Features     *[]string `json:"features,omitempty" validate:"omitempty,dive,min=1,max=200"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

type AdminCreateCouponRequest struct {
	Code             string              `json:"code" validate:"required,min=3,max=64,alphanum"`
	DiscountType     models.DiscountType `json:"discount_type" validate:"required,oneof=PERCENT FIXED"`
	DiscountValue    int64               `json:"discount_value" validate:"required,gt=0"`
	MaxDiscountCents *int64              `json:"max_discount_cents,omitempty" validate:"omitempty,gt=0"`
	MinOrderCents    int64               `json:"min_order_cents" validate:"min=0"`
	UsageLimit       *int                `json:"usage_limit,omitempty" validate:"omitempty,gt=0"`
	PerUserLimit     int                 `json:"per_user_limit" validate:"omitempty,min=1"`
	StartsAt         *time.Time          `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time          `json:"expires_at,omitempty"`
	IsActive         *bool               `json:"is_active,omitempty"`
}

type AdminUpdateCouponRequest struct {
	RowVersion       int64      `json:"row_version" validate:"required,gt=0"`
	DiscountValue    *int64     `json:"discount_value,omitempty" validate:"omitempty,gt=0"`
	MaxDiscountCents *int64     `json:"max_discount_cents,omitempty" validate:"omitempty,gt=0"`
	MinOrderCents    *int64     `json:"min_order_cents,omitempty" validate:"omitempty,min=0"`
	UsageLimit       *int       `json:"usage_limit,omitempty" validate:"omitempty,gt=0"`
	PerUserLimit     *int       `json:"per_user_limit,omitempty" validate:"omitempty,min=1"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	IsActive         *bool      `json:"is_active,omitempty"`
}

type AdminRefundOrderRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type AdminAdjustPointsRequest struct {
	Delta int64  `json:"delta" validate:"required,ne=0"`
	Note  string `json:"note" validate:"required,max=500"`
}

type AdminAdjustPointsResponse struct {
	Balance     int64                      `json:"balance"`
	Transaction *models.LoyaltyTransaction `json:"transaction"`
}

type DashboardResponse struct {
	OrdersByStatus    map[models.OrderStatus]int64 `json:"orders_by_status"`
	RevenueCents      int64                        `json:"revenue_cents"`
	PaidOrders        int64                        `json:"paid_orders"`
	RevenueWindowDays int                          `json:"revenue_window_days"`
	Currency          string                       `json:"currency"`
	LowStockThreshold int                          `json:"low_stock_threshold"`
	LowStock          []*models.Product            `json:"low_stock"`
}
