package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	middleware "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-middleware"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
)

// CreateJWT signs a short-lived access token for userID with the given role.
func (h *TestHelper) CreateJWT(userID uuid.UUID, role models.UserRole) string {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"iss":  middleware.TokenIssuer,
		"sub":  userID.String(),
		"role": string(role),
		"iat":  now,
		"exp":  now + 15*60,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(h.PrivateKey)
	require.NoError(h.T, err, "Failed to sign test JWT")
	return signed
}

// GenerateTOTPCode generates a valid TOTP code for a given secret.
func (h *TestHelper) GenerateTOTPCode(secret string) string {
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(h.T, err)
	return code
}
