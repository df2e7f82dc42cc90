package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	models "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-models"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// AuthService handles customer and admin sign-in.
type AuthService interface {
	Register(ctx context.Context, req dtos.RegisterRequest) (*dtos.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*dtos.AuthResponse, error)
	AdminLogin(ctx context.Context, email, password, totpCode string) (*dtos.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dtos.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*dtos.UserResponse, error)
}

type authService struct {
	cfg       *config.Config
	userRepo  repositories.UserRepository
	tokenRepo repositories.TokenRepository
	jwt       JWTService
	now       func() time.Time
}

func NewAuthService(
	cfg *config.Config,
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	jwtSvc JWTService,
) AuthService {
	return &authService{
		cfg:       cfg,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwt:       jwtSvc,
		now:       time.Now,
	}
}

func invalidCredentials() error {
	return utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid email or password", nil)
}

func (s *authService) Register(ctx context.Context, req dtos.RegisterRequest) (*dtos.AuthResponse, error) {
	if len(req.Password) < constants.MinPasswordLength {
		return nil, utils.NewAppError(http.StatusBadRequest, utils.ErrWeakPassword.Error(), "Password is too short", utils.ErrWeakPassword)
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, utils.InternalError("Failed to look up email", err)
	}
	if existing != nil {
		return nil, utils.NewAppError(http.StatusConflict, utils.ErrCodeEmailExists, "Email already registered", utils.ErrEmailExists)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, utils.InternalError("Failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        utils.NormalizeEmail(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  req.PhoneNumber,
		Role:         models.RoleCustomer,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, utils.NewAppError(http.StatusConflict, utils.ErrCodeEmailExists, "Email already registered", utils.ErrEmailExists)
		}
		return nil, utils.InternalError("Failed to create user", err)
	}
	user.RowVersion = 1
	user.CreatedAt = s.now()

	utils.Logger.WithField("userID", user.ID).Info("Customer registered")
	return s.issueTokens(ctx, user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*dtos.AuthResponse, error) {
	user, err := s.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, utils.NewAppError(http.StatusForbidden, utils.ErrCodeForbidden, "Admins must sign in with a TOTP code", nil)
	}
	s.resetAttempts(ctx, user)
	return s.issueTokens(ctx, user)
}

func (s *authService) AdminLogin(ctx context.Context, email, password, totpCode string) (*dtos.AuthResponse, error) {
	user, err := s.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, invalidCredentials()
	}
	if user.TOTPSecret == "" || !totp.Validate(totpCode, user.TOTPSecret) {
		s.recordFailure(ctx, user)
		return nil, utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeInvalidTotp, "Invalid TOTP code", nil)
	}
	s.resetAttempts(ctx, user)

	if err := s.tokenRepo.RemoveAllForUser(ctx, user.ID); err != nil {
		utils.Logger.WithError(err).Error("failed to remove old admin tokens on login")
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dtos.AuthResponse, error) {
	if refreshToken == "" {
		return nil, utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing refresh token", nil)
	}
	userID, next, err := s.jwt.RotateRefreshToken(ctx, refreshToken, constants.RefreshTokenTTL)
	switch {
	case errors.Is(err, ErrRefreshTokenExpired):
		return nil, utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Refresh token expired", err)
	case errors.Is(err, ErrInvalidRefreshToken):
		return nil, utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid refresh token", err)
	case err != nil:
		return nil, utils.InternalError("Failed to refresh token", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Account no longer exists", nil)
	}

	access, err := s.jwt.GenerateAccessToken(ctx, user, constants.AccessTokenTTL)
	if err != nil {
		return nil, utils.InternalError("Failed to sign access token", err)
	}
	return &dtos.AuthResponse{
		AccessToken:  access,
		RefreshToken: next.Token,
		ExpiresIn:    int64(constants.AccessTokenTTL.Seconds()),
		User:         dtos.NewUserResponse(user),
	}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.jwt.Logout(ctx, refreshToken); err != nil {
		return utils.InternalError("Failed to revoke refresh token", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*dtos.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, utils.NotFoundError("User not found")
	}
	resp := dtos.NewUserResponse(user)
	return &resp, nil
}

// checkPassword enforces the lockout window and counts failures.
func (s *authService) checkPassword(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, utils.InternalError("Failed to look up user", err)
	}
	if user == nil {
		return nil, invalidCredentials()
	}
	if user.IsLocked(s.now()) {
		return nil, utils.NewAppError(http.StatusForbidden, utils.ErrCodeLockedAccount,
			"Account locked until "+user.LockedUntil.UTC().Format(time.RFC3339), nil)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		s.recordFailure(ctx, user)
		return nil, invalidCredentials()
	}
	return user, nil
}

func (s *authService) recordFailure(ctx context.Context, user *models.User) {
	now := s.now()
	err := s.userRepo.UpdateWithRetry(ctx, user.ID, func(u *models.User) error {
		u.FailedLoginAttempts++
		if u.FailedLoginAttempts >= constants.MaxFailedLoginAttempts {
			until := now.Add(constants.LoginLockoutDuration)
			u.LockedUntil = &until
			u.FailedLoginAttempts = 0
		}
		return nil
	})
	if err != nil {
		utils.Logger.WithError(err).WithField("userID", user.ID).Error("Failed to record login failure")
	}
}

func (s *authService) resetAttempts(ctx context.Context, user *models.User) {
	if user.FailedLoginAttempts == 0 && user.LockedUntil == nil {
		return
	}
	err := s.userRepo.UpdateWithRetry(ctx, user.ID, func(u *models.User) error {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		return nil
	})
	if err != nil {
		utils.Logger.WithError(err).WithField("userID", user.ID).Error("Failed to reset login attempts")
	}
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*dtos.AuthResponse, error) {
	access, err := s.jwt.GenerateAccessToken(ctx, user, constants.AccessTokenTTL)
	if err != nil {
		return nil, utils.InternalError("Failed to sign access token", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, user.ID, constants.RefreshTokenTTL)
	if err != nil {
		return nil, utils.InternalError("Failed to store refresh token", err)
	}
	return &dtos.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(constants.AccessTokenTTL.Seconds()),
		User:         dtos.NewUserResponse(user),
	}, nil
}
