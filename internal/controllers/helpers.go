package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/dtos"
	shared_dtos "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-dtos"
	middleware "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-middleware"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

const maxJSONBody = 1 << 20

var validate = validator.New()

// decodeAndValidate writes the 400 itself and reports false on failure.
// An empty body decodes to the zero request.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error",
				shared_dtos.FormatValidationErrors(vErrs), err)
			return false
		}
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error", nil, err)
		return false
	}
	return true
}

// callerID reads the authenticated subject placed by the auth middleware.
func callerID(r *http.Request) (uuid.UUID, error) {
	sub, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing user in context", nil)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, utils.NewAppError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid subject", err)
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, utils.NewAppError(http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid "+name, err)
	}
	return id, nil
}

// pageParams reads limit and offset; bad values fall back to the defaults.
func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}

// setAuthCookies mirrors the issued tokens into cookies for the web
// storefront; API clients keep using the JSON body.
func setAuthCookies(w http.ResponseWriter, resp *dtos.AuthResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    resp.AccessToken,
		Path:     "/",
		MaxAge:   int(constants.AccessTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookieName,
		Value:    resp.RefreshToken,
		Path:     "/api/v1/auth",
		MaxAge:   int(constants.RefreshTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{
		middleware.AccessTokenCookieName:  "/",
		middleware.RefreshTokenCookieName: "/api/v1/auth",
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// refreshTokenFrom prefers the JSON body and falls back to the cookie.
func refreshTokenFrom(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	if c, err := r.Cookie(middleware.RefreshTokenCookieName); err == nil {
		return c.Value
	}
	return ""
}
