package middleware

import (
	"crypto/rsa"
	"net/http"

	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// AdminAuthMiddleware validates a JWT and ensures it carries the admin role.
func AdminAuthMiddleware(pub *rsa.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := authenticate(w, r, pub)
			if !ok {
				return
			}

			role, _ := claims["role"].(string)
			if role != utils.RoleAdmin {
				utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}
