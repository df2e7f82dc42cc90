package utils

import "golang.org/x/crypto/bcrypt"

// PasswordHashCost is lowered in tests through SetPasswordHashCost.
var PasswordHashCost = 12

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// SetPasswordHashCost overrides the bcrypt cost, returning the previous value.
func SetPasswordHashCost(cost int) int {
	prev := PasswordHashCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	PasswordHashCost = cost
	return prev
}
