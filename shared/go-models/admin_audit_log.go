package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

type AuditTargetType string

const (
	TargetProduct          AuditTargetType = "PRODUCT"
	TargetProgramme        AuditTargetType = "PROGRAMME"
	TargetSubscriptionPlan AuditTargetType = "SUBSCRIPTION_PLAN"
	TargetCoupon           AuditTargetType = "COUPON"
	TargetOrder            AuditTargetType = "ORDER"
	TargetUser             AuditTargetType = "USER"
)

type AdminAuditLog struct {
	ID         uuid.UUID        `json:"id"`
	AdminID    uuid.UUID        `json:"admin_id"`
	Action     AuditAction      `json:"action"`
	TargetID   uuid.UUID        `json:"target_id"`
	TargetType AuditTargetType  `json:"target_type"`
	Details    *json.RawMessage `json:"details,omitempty"` // before/after snapshot
	CreatedAt  time.Time        `json:"created_at"`
}
