package middlewares

import (
	"strings"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Session attaches a Session to every request. A missing or bad bearer token
// yields Anonymous; the route guards decide what that means.
func (m *AuthMiddleware) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := auth.Anonymous()

		if raw, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := m.jwt.VerifyAccessToken(raw); err == nil {
				s = auth.FromClaims(claims)
			}
		}

		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), s))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return raw, raw != ""
}

// UserIDFromContext is for middlewares that run after Session.
func UserIDFromContext(c *gin.Context) (string, bool) {
	s := auth.SessionFrom(c.Request.Context())
	return s.UserID(), s.IsAuthenticated()
}

func abortError(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)

	body := gin.H{
		"code":    code,
		"message": message,
	}
	if id, ok := reqID.(string); ok && id != "" {
		body["requestId"] = id
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
