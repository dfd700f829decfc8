package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/farmhub/internal/actorctx"
	"github.com/geocoder89/farmhub/internal/auth"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt  TokenVerifier
	prom *observability.Prom
}

func NewAuthMiddleware(jwt TokenVerifier, prom *observability.Prom) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, prom: prom}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// RequireAuth is the authentication stage. Every failure looks the same to
// the caller: a missing header, a bad signature and an expired token all give
// the same 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.prom.IncAuthRejection("unauthenticated")
			abortWith(c, http.StatusUnauthorized, "Unauthenticated", "Authentication required")
			return
		}

		claims, err := m.jwt.VerifyToken(raw)
		if err != nil {
			m.prom.IncAuthRejection("unauthenticated")
			abortWith(c, http.StatusUnauthorized, "Unauthenticated", "Authentication required")
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxRoleKey, claims.Role)

		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actorctx.Actor{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  claims.Role,
		}))

		c.Next()
	}
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	return c.GetString(ctxUserIDKey), c.GetString(ctxUserIDKey) != ""
}

func RoleFromContext(c *gin.Context) (string, bool) {
	return c.GetString(ctxRoleKey), c.GetString(ctxRoleKey) != ""
}
