package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	middleware "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-middleware"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// ---------------------------------------------------------------------
// JWTService interface
// ---------------------------------------------------------------------

type JWTService interface {
	GenerateAccessToken(ctx context.Context, user *models.User, tokenExpiry time.Duration) (string, error)
	GenerateRefreshToken(ctx context.Context, userID uuid.UUID, refreshExpiry time.Duration) (*models.RefreshToken, error)

	// RotateRefreshToken consumes a refresh token and returns the owner id
	// plus a freshly stored replacement.
	RotateRefreshToken(ctx context.Context, raw string, refreshExpiry time.Duration) (uuid.UUID, *models.RefreshToken, error)

	Logout(ctx context.Context, raw string) error
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type jwtService struct {
	privateKey *rsa.PrivateKey
	tokenRepo  repositories.TokenRepository
	now        func() time.Time
}

func NewJWTService(cfg *config.Config, tokenRepo repositories.TokenRepository) JWTService {
	return &jwtService{
		privateKey: cfg.RSAPrivateKey,
		tokenRepo:  tokenRepo,
		now:        time.Now,
	}
}

func (j *jwtService) GenerateAccessToken(ctx context.Context, user *models.User, tokenExpiry time.Duration) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"iss":  middleware.TokenIssuer,
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"exp":  now.Add(tokenExpiry).Unix(),
		"iat":  now.Unix(),
		"jti":  uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.privateKey)
}

func (j *jwtService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID, refreshExpiry time.Duration) (*models.RefreshToken, error) {
	if j.tokenRepo == nil {
		return nil, errors.New("jwtService has nil tokenRepo")
	}

	now := j.now()
	rt := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     utils.SecureToken(constants.RefreshTokenBytes),
		ExpiresAt: now.Add(refreshExpiry),
		CreatedAt: now,
	}
	if err := j.tokenRepo.CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (j *jwtService) RotateRefreshToken(ctx context.Context, raw string, refreshExpiry time.Duration) (uuid.UUID, *models.RefreshToken, error) {
	if j.tokenRepo == nil {
		return uuid.Nil, nil, errors.New("jwtService has nil tokenRepo")
	}

	old, err := j.tokenRepo.GetRefreshToken(ctx, raw)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if old == nil || old.Revoked {
		return uuid.Nil, nil, ErrInvalidRefreshToken
	}
	if old.ExpiresAt.Before(j.now()) {
		utils.Logger.WithField("userID", old.UserID).Info("Expired refresh token presented")
		return uuid.Nil, nil, ErrRefreshTokenExpired
	}

	if err := j.tokenRepo.RemoveRefreshToken(ctx, old.ID); err != nil {
		return uuid.Nil, nil, err
	}
	next, err := j.GenerateRefreshToken(ctx, old.UserID, refreshExpiry)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return old.UserID, next, nil
}

// Logout is a no-op for unknown tokens.
func (j *jwtService) Logout(ctx context.Context, raw string) error {
	if j.tokenRepo == nil {
		return errors.New("jwtService has nil tokenRepo")
	}
	rt, err := j.tokenRepo.GetRefreshToken(ctx, raw)
	if err != nil {
		return err
	}
	if rt == nil {
		return nil
	}
	return j.tokenRepo.RemoveRefreshToken(ctx, rt.ID)
}
