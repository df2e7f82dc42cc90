package dtos

import (
	"time"

	"github.com/google/uuid"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type RewardsResponse struct {
	Balance               int64                        `json:"balance"`
	PointValueCents       int64                        `json:"point_value_cents"`
	PointsPerCurrencyUnit int64                        `json:"points_per_currency_unit"`
	MinRedeemPoints       int64                        `json:"min_redeem_points"`
	MaxRedeemPercent      int64                        `json:"max_redeem_percent"`
	History               []*models.LoyaltyTransaction `json:"history"`
}

type SubscriptionResponse struct {
	ID       uuid.UUID                 `json:"id"`
	PlanID   uuid.UUID                 `json:"plan_id"`
	PlanName string                    `json:"plan_name"`
	OrderID  uuid.UUID                 `json:"order_id"`
	Status   models.SubscriptionStatus `json:"status"`
	StartsAt time.Time                 `json:"starts_at"`
	EndsAt   time.Time                 `json:"ends_at"`
}
