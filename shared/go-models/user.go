package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// User is a store account. Admins are users with RoleAdmin and a TOTP secret.
type User struct {
	Versioned

	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Role         UserRole  `json:"role"`

	// LoyaltyPoints is the spendable balance. Never negative.
	LoyaltyPoints int64 `json:"loyalty_points"`

	// TOTPSecret is encrypted at rest.
	TOTPSecret string `json:"-"`

	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) GetID() string {
	return u.ID.String()
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsLocked reports whether logins are currently refused.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
