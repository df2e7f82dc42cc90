package controllers

import (
	"net/http"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	shared_dtos "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-dtos"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type AuthController struct {
	authService services.AuthService
}

func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// POST /api/v1/auth/register
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req dtos.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.authService.Register(r.Context(), req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	setAuthCookies(w, resp)
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// POST /api/v1/auth/login
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dtos.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	setAuthCookies(w, resp)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/auth/admin/login
func (c *AuthController) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req dtos.AdminLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.authService.AdminLogin(r.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	setAuthCookies(w, resp)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/auth/refresh
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dtos.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.authService.Refresh(r.Context(), refreshTokenFrom(r, req.RefreshToken))
	if err != nil {
		clearAuthCookies(w)
		utils.HandleAppError(w, err)
		return
	}
	setAuthCookies(w, resp)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/auth/logout
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	var req dtos.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := c.authService.Logout(r.Context(), refreshTokenFrom(r, req.RefreshToken)); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	clearAuthCookies(w)
	utils.RespondWithJSON(w, http.StatusOK, shared_dtos.ConfirmationResponse{Message: "Logged out"})
}

// GET /api/v1/auth/me
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	me, err := c.authService.Me(r.Context(), userID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, me)
}
