package models

import (
	"time"

	"github.com/google/uuid"
)

type ProgrammeLevel string

const (
	LevelBeginner     ProgrammeLevel = "beginner"
	LevelIntermediate ProgrammeLevel = "intermediate"
	LevelAdvanced     ProgrammeLevel = "advanced"
)

// Programme is a digital training programme. Buying it grants access once.
type Programme struct {
	Versioned

	ID            uuid.UUID      `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Level         ProgrammeLevel `json:"level"`
	DurationWeeks int            `json:"duration_weeks"`
	PriceCents    int64          `json:"price_cents"`
	ImageURL      *string        `json:"image_url,omitempty"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (p *Programme) GetID() string {
	return p.ID.String()
}

// UserProgramme is an access grant created when an order is paid.
type UserProgramme struct {
	UserID      uuid.UUID `json:"user_id"`
	ProgrammeID uuid.UUID `json:"programme_id"`
	OrderID     uuid.UUID `json:"order_id"`
	GrantedAt   time.Time `json:"granted_at"`
}
