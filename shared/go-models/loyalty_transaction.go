package models

import (
	"time"

	"github.com/google/uuid"
)

type LoyaltyTxnType string

const (
	LoyaltyEarn    LoyaltyTxnType = "EARN"
	LoyaltyRedeem  LoyaltyTxnType = "REDEEM"
	LoyaltyRestore LoyaltyTxnType = "RESTORE"
	LoyaltyReverse LoyaltyTxnType = "REVERSE"
	LoyaltyAdjust  LoyaltyTxnType = "ADJUST"
)

// LoyaltyTransaction is an append-only ledger row. Points is signed.
type LoyaltyTransaction struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	OrderID      *uuid.UUID     `json:"order_id,omitempty"`
	Type         LoyaltyTxnType `json:"type"`
	Points       int64          `json:"points"`
	BalanceAfter int64          `json:"balance_after"`
	Note         *string        `json:"note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
