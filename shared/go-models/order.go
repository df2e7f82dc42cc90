package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderFailed    OrderStatus = "FAILED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderFailed, OrderCancelled},
	OrderPaid:    {OrderRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentProvider string

const (
	ProviderPaymob PaymentProvider = "paymob"
	ProviderTabby  PaymentProvider = "tabby"
	ProviderStripe PaymentProvider = "stripe"
)

type ShippingDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Order struct {
	Versioned

	ID     uuid.UUID   `json:"id"`
	UserID uuid.UUID   `json:"user_id"`
	Status OrderStatus `json:"status"`

	SubtotalCents       int64  `json:"subtotal_cents"`
	CouponDiscountCents int64  `json:"coupon_discount_cents"`
	PointsDiscountCents int64  `json:"points_discount_cents"`
	TotalCents          int64  `json:"total_cents"`
	Currency            string `json:"currency"`

	CouponID       *uuid.UUID `json:"coupon_id,omitempty"`
	CouponCode     *string    `json:"coupon_code,omitempty"`
	PointsRedeemed int64      `json:"points_redeemed"`
	PointsEarned   int64      `json:"points_earned"`

	PaymentProvider       PaymentProvider `json:"payment_provider"`
	ProviderOrderID       *string         `json:"provider_order_id,omitempty"`
	ProviderPaymentID     *string         `json:"provider_payment_id,omitempty"`
	ProviderTransactionID *string         `json:"provider_transaction_id,omitempty"`
	ChargeAmountCents     int64           `json:"charge_amount_cents"`
	ChargeCurrency        string          `json:"charge_currency"`
	FXRate                float64         `json:"fx_rate"`
	CheckoutURL           *string         `json:"checkout_url,omitempty"`
	FailureReason         *string         `json:"failure_reason,omitempty"`

	Shipping         *ShippingDetails `json:"shipping,omitempty"`
	FlaggedForReview bool             `json:"flagged_for_review"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty"`
}

func (o *Order) GetID() string {
	return o.ID.String()
}

type OrderItem struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	ItemType       ItemType  `json:"item_type"`
	ItemID         uuid.UUID `json:"item_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	// StockDeducted is set when payment took this line's units from stock.
	StockDeducted bool `json:"stock_deducted"`
}

func (i OrderItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}
