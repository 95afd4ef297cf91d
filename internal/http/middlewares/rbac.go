package middlewares

import (
	"net/http"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole is 401 for anonymous callers and 403 for the wrong role.
func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := auth.SessionFrom(c.Request.Context())

		if !s.IsAuthenticated() {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		if !s.HasRole(required) {
			abortError(c, http.StatusForbidden, "forbidden", "Forbidden - "+string(required)+" role required")
			return
		}
		c.Next()
	}
}
