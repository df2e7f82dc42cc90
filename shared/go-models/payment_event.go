package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentEvent records a processed gateway notification. The pair
// (Provider, EventKey) is unique.
type PaymentEvent struct {
	ID         uuid.UUID       `json:"id"`
	Provider   PaymentProvider `json:"provider"`
	EventKey   string          `json:"event_key"`
	OrderID    *uuid.UUID      `json:"order_id,omitempty"`
	Outcome    string          `json:"outcome"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}
