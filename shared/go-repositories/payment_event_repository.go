package repositories

import (
	"context"

	"github.com/google/uuid"

	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

type PaymentEventRepository interface {
	// Record stores the event and reports false when (provider, event_key)
	// was already recorded.
	Record(ctx context.Context, ev *models.PaymentEvent) (bool, error)
}

type paymentEventRepo struct {
	db DB
}

func NewPaymentEventRepository(db DB) PaymentEventRepository {
	return &paymentEventRepo{db: db}
}

func (r *paymentEventRepo) Record(ctx context.Context, ev *models.PaymentEvent) (bool, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	var payload any
	if len(ev.Payload) > 0 {
		payload = string(ev.Payload)
	}
	tag, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO payment_events (id, provider, event_key, order_id, outcome, payload, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (provider, event_key) DO NOTHING`,
		ev.ID, string(ev.Provider), ev.EventKey, ev.OrderID, ev.Outcome, payload,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
