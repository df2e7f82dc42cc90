package utils

import (
	"errors"
	"net/http"

	shared_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

/*
Sentinel errors for store-service domain logic. The message doubles as
the public error code, so controllers and tests can match either way.
*/
var (
	// Catalog & cart
	ErrItemUnavailable      = errors.New("item_unavailable")
	ErrInvalidItemType      = errors.New("invalid_item_type")
	ErrInsufficientStock    = errors.New("insufficient_stock")
	ErrProgrammeOwned       = errors.New("programme_already_owned")
	ErrCartEmpty            = errors.New("cart_empty")
	ErrCartLineNotFound     = errors.New("cart_line_not_found")
	ErrStockWouldGoNegative = errors.New("stock_would_go_negative")

	// Coupons
	ErrCouponNotFound          = errors.New("coupon_not_found")
	ErrCouponInactive          = errors.New("coupon_inactive")
	ErrCouponNotStarted        = errors.New("coupon_not_started")
	ErrCouponExpired           = errors.New("coupon_expired")
	ErrCouponUsageLimitReached = errors.New("coupon_usage_limit_reached")
	ErrCouponUserLimitReached  = errors.New("coupon_user_limit_reached")
	ErrCouponMinOrderNotMet    = errors.New("coupon_min_order_not_met")
	ErrCouponCodeExists        = errors.New("coupon_code_exists")

	// Rewards
	ErrPointsBelowMinimum  = errors.New("points_below_minimum")
	ErrPointsExceedBalance = errors.New("points_exceed_balance")
	ErrPointsExceedLimit   = errors.New("points_exceed_limit")

	// Checkout & orders
	ErrShippingRequired      = errors.New("shipping_required")
	ErrZeroTotalNotSupported = errors.New("zero_total_not_supported")
	ErrProviderDisabled      = errors.New("provider_disabled")
	ErrFXRateUnavailable     = errors.New("fx_rate_unavailable")
	ErrOrderNotCancellable   = errors.New("order_not_cancellable")
	ErrInvalidTransition     = errors.New("invalid_status_transition")
	ErrOrderNotFound         = errors.New("order_not_found")
)

// NewDomainError wraps a sentinel in an AppError whose code is the
// sentinel's message.
func NewDomainError(status int, sentinel error, msg string) *shared_utils.AppError {
	return shared_utils.NewAppError(status, sentinel.Error(), msg, sentinel)
}

func BadRequest(sentinel error, msg string) *shared_utils.AppError {
	return NewDomainError(http.StatusBadRequest, sentinel, msg)
}

func Conflict(sentinel error, msg string) *shared_utils.AppError {
	return NewDomainError(http.StatusConflict, sentinel, msg)
}

// ExternalFailure reports a provider outage as 502.
func ExternalFailure(msg string, err error) *shared_utils.AppError {
	return shared_utils.NewAppError(
		http.StatusBadGateway,
		shared_utils.ErrCodeExternalServiceFailure,
		msg,
		errors.Join(shared_utils.ErrExternalServiceFailure, err),
	)
}
