package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is stored by hash; Token only holds the raw value right
// after issuance so it can be returned to the client.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}
