package repositories

import "errors"

// Returned by guarded counter updates when the guard rejects the change.
var (
	ErrInsufficientStock  = errors.New("insufficient_stock")
	ErrInsufficientPoints = errors.New("insufficient_points")
	ErrCouponExhausted    = errors.New("coupon_usage_limit_reached")
)
