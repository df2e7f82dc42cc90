package dtos

import (
	"time"

	"github.com/google/uuid"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type QuoteRequest struct {
	Provider   models.PaymentProvider `json:"provider" validate:"required,oneof=paymob tabby stripe"`
	CouponCode *string                `json:"coupon_code,omitempty" validate:"omitempty,min=1,max=64"`
	Points     int64                  `json:"points" validate:"min=0"`
}

type ShippingRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"required,max=32"`
	Address string `json:"address" validate:"required,max=500"`
	City    string `json:"city" validate:"required,max=100"`
	Country string `json:"country" validate:"required,max=100"`
}

func (s *ShippingRequest) ToModel() *models.ShippingDetails {
	if s == nil {
		return nil
	}
	return &models.ShippingDetails{
		Name:    s.Name,
		Phone:   s.Phone,
		Address: s.Address,
		City:    s.City,
		Country: s.Country,
	}
}

type CheckoutRequest struct {
	QuoteRequest
	Shipping *ShippingRequest `json:"shipping,omitempty" validate:"omitempty"`
}

type QuoteResponse struct {
	Lines               []CartLineResponse     `json:"lines"`
	SubtotalCents       int64                  `json:"subtotal_cents"`
	CouponCode          *string                `json:"coupon_code,omitempty"`
	CouponDiscountCents int64                  `json:"coupon_discount_cents"`
	PointsRedeemed      int64                  `json:"points_redeemed"`
	PointsDiscountCents int64                  `json:"points_discount_cents"`
	TotalCents          int64                  `json:"total_cents"`
	Currency            string                 `json:"currency"`
	Provider            models.PaymentProvider `json:"provider"`
	ChargeAmountCents   int64                  `json:"charge_amount_cents"`
	ChargeCurrency      string                 `json:"charge_currency"`
	FXRate              float64                `json:"fx_rate"`
	PointsToEarn        int64                  `json:"points_to_earn"`
}

type CheckoutResponse struct {
	OrderID           uuid.UUID              `json:"order_id"`
	Provider          models.PaymentProvider `json:"provider"`
	CheckoutURL       *string                `json:"checkout_url,omitempty"`
	ClientSecret      *string                `json:"client_secret,omitempty"`
	TotalCents        int64                  `json:"total_cents"`
	Currency          string                 `json:"currency"`
	ChargeAmountCents int64                  `json:"charge_amount_cents"`
	ChargeCurrency    string                 `json:"charge_currency"`
	ExpiresAt         time.Time              `json:"expires_at"`
}

type ValidateCouponRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

type ValidateCouponResponse struct {
	Code          string              `json:"code"`
	DiscountType  models.DiscountType `json:"discount_type"`
	DiscountValue int64               `json:"discount_value"`
	SubtotalCents int64               `json:"subtotal_cents"`
	DiscountCents int64               `json:"discount_cents"`
}

// WebhookAckResponse is returned to payment gateways once a notification
// has been handled, including duplicates and unknown orders.
type WebhookAckResponse struct {
	Result string `json:"result"`
}
