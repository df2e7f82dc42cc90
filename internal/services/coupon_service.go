package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	internal_utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type CouponService struct {
	coupons repositories.CouponRepository
	now     func() time.Time
}

func NewCouponService(coupons repositories.CouponRepository) *CouponService {
	return &CouponService{coupons: coupons, now: time.Now}
}

// Validate checks every redemption rule against a subtotal and returns the
// coupon with the discount it would grant. It does not consume the coupon.
func (s *CouponService) Validate(ctx context.Context, code string, userID uuid.UUID, subtotalCents int64) (*models.Coupon, int64, error) {
	c, err := s.coupons.GetByCode(ctx, repositories.NormalizeCouponCode(code))
	if err != nil {
		return nil, 0, utils.InternalError("Failed to load coupon", err)
	}
	if c == nil {
		return nil, 0, internal_utils.NewDomainError(http.StatusNotFound, internal_utils.ErrCouponNotFound, "Coupon not found")
	}

	now := s.now()
	switch {
	case !c.IsActive:
		return nil, 0, internal_utils.BadRequest(internal_utils.ErrCouponInactive, "Coupon is no longer active")
	case c.StartsAt != nil && now.Before(*c.StartsAt):
		return nil, 0, internal_utils.BadRequest(internal_utils.ErrCouponNotStarted, "Coupon is not valid yet")
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return nil, 0, internal_utils.BadRequest(internal_utils.ErrCouponExpired, "Coupon has expired")
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return nil, 0, internal_utils.BadRequest(internal_utils.ErrCouponUsageLimitReached, "Coupon usage limit reached")
	}

	if c.PerUserLimit > 0 {
		used, err := s.coupons.CountUserRedemptions(ctx, c.ID, userID)
		if err != nil {
			return nil, 0, utils.InternalError("Failed to count coupon redemptions", err)
		}
		if used >= c.PerUserLimit {
			return nil, 0, internal_utils.BadRequest(internal_utils.ErrCouponUserLimitReached, "You have already used this coupon")
		}
	}

	if subtotalCents < c.MinOrderCents {
		return nil, 0, internal_utils.BadRequest(internal_utils.ErrCouponMinOrderNotMet,
			fmt.Sprintf("Order must be at least %s", utils.FormatMinorUnits(c.MinOrderCents)))
	}

	return c, ComputeDiscount(c, subtotalCents), nil
}

// ComputeDiscount never returns more than the subtotal.
func ComputeDiscount(c *models.Coupon, subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	var d int64
	switch c.DiscountType {
	case models.DiscountPercent:
		d = subtotalCents * c.DiscountValue / 100
		if c.MaxDiscountCents != nil && d > *c.MaxDiscountCents {
			d = *c.MaxDiscountCents
		}
	case models.DiscountFixed:
		d = c.DiscountValue
	}
	if d < 0 {
		return 0
	}
	if d > subtotalCents {
		return subtotalCents
	}
	return d
}
