package services

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type authFixture struct {
	*testEnv
	key  *rsa.PrivateKey
	auth AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	e := newTestEnv(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	e.cfg.RSAPrivateKey = key
	e.cfg.RSAPublicKey = &key.PublicKey
	return &authFixture{
		testEnv: e,
		key:     key,
		auth:    NewAuthService(e.cfg, e.users, e.tokens, NewJWTService(e.cfg, e.tokens)),
	}
}

func (f *authFixture) seedAccount(role models.UserRole, password, totpSecret string) *models.User {
	f.t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(f.t, err)
	u := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString()[:8] + "@gymmawy.test",
		PasswordHash: hash,
		FirstName:    "Salma",
		Role:         role,
		TOTPSecret:   totpSecret,
	}
	require.NoError(f.t, f.users.Create(f.ctx, u))
	return u
}

func TestRegisterIssuesTokens(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.auth.Register(f.ctx, dtos.RegisterRequest{
		Email: "  Coach.Mo@Example.com ", Password: "s3cure-pass", FirstName: " Mo ",
	})
	require.NoError(t, err)
	assert.Equal(t, "coach.mo@example.com", resp.User.Email)
	assert.Equal(t, "Mo", resp.User.FirstName)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(constants.AccessTokenTTL.Seconds()), resp.ExpiresIn)

	parsed, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (any, error) { return &f.key.PublicKey, nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.ID.String(), claims["sub"])
	assert.Equal(t, string(models.RoleCustomer), claims["role"])

	_, err = f.auth.Register(f.ctx, dtos.RegisterRequest{Email: "coach.mo@example.com", Password: "another-pass", FirstName: "X"})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeEmailExists)

	_, err = f.auth.Register(f.ctx, dtos.RegisterRequest{Email: "short@example.com", Password: "abc", FirstName: "X"})
	requireAppError(t, err, http.StatusBadRequest, "")
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t)
	u := f.seedAccount(models.RoleCustomer, "correct-horse", "")

	for i := 0; i < constants.MaxFailedLoginAttempts; i++ {
		_, err := f.auth.Login(f.ctx, u.Email, "wrong")
		requireAppError(t, err, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials)
	}

	_, err := f.auth.Login(f.ctx, u.Email, "correct-horse")
	requireAppError(t, err, http.StatusForbidden, utils.ErrCodeLockedAccount)

	f.auth.(*authService).now = func() time.Time { return time.Now().Add(constants.LoginLockoutDuration + time.Minute) }
	resp, err := f.auth.Login(f.ctx, u.Email, "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)

	got := f.user(u.ID)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockedUntil)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Login(f.ctx, "nobody@gymmawy.test", "whatever")
	requireAppError(t, err, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials)
}

func TestAdminLoginRequiresTOTP(t *testing.T) {
	f := newAuthFixture(t)
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "Gymmawy", AccountName: "admin@gymmawy.test"})
	require.NoError(t, err)
	admin := f.seedAccount(models.RoleAdmin, "admin-pass-1", key.Secret())
	customer := f.seedAccount(models.RoleCustomer, "customer-pass", "")

	_, err = f.auth.Login(f.ctx, admin.Email, "admin-pass-1")
	requireAppError(t, err, http.StatusForbidden, utils.ErrCodeForbidden)

	_, err = f.auth.AdminLogin(f.ctx, admin.Email, "admin-pass-1", "000000")
	requireAppError(t, err, http.StatusUnauthorized, utils.ErrCodeInvalidTotp)

	_, err = f.auth.AdminLogin(f.ctx, customer.Email, "customer-pass", "000000")
	requireAppError(t, err, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	resp, err := f.auth.AdminLogin(f.ctx, admin.Email, "admin-pass-1", code)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newAuthFixture(t)
	u := f.seedAccount(models.RoleCustomer, "rotate-me-1", "")

	login, err := f.auth.Login(f.ctx, u.Email, "rotate-me-1")
	require.NoError(t, err)

	refreshed, err := f.auth.Refresh(f.ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = f.auth.Refresh(f.ctx, login.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, utils.ErrCodeUnauthorized)

	require.NoError(t, f.auth.Logout(f.ctx, refreshed.RefreshToken))
	_, err = f.auth.Refresh(f.ctx, refreshed.RefreshToken)
	requireAppError(t, err, http.StatusUnauthorized, "")

	require.NoError(t, f.auth.Logout(f.ctx, "never-issued"))

	_, err = f.auth.Refresh(f.ctx, "")
	requireAppError(t, err, http.StatusUnauthorized, "")
}

func TestRefreshExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	u := f.seedAccount(models.RoleCustomer, "expire-me-1", "")
	require.NoError(t, f.tokens.CreateRefreshToken(f.ctx, &models.RefreshToken{
		ID: uuid.New(), UserID: u.ID, Token: "stale-token", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := f.auth.Refresh(f.ctx, "stale-token")
	requireAppError(t, err, http.StatusUnauthorized, utils.ErrCodeTokenExpired)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	u := f.seedUser(120)

	me, err := f.auth.Me(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), me.LoyaltyPoints)

	_, err = f.auth.Me(f.ctx, uuid.New())
	requireAppError(t, err, http.StatusNotFound, "")
}
