package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole is the role stage. It must run after RequireAuth; without an
// identity on the context it answers 401 rather than 403.
func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			m.prom.IncAuthRejection("unauthenticated")
			abortWith(c, http.StatusUnauthorized, "Unauthenticated", "Authentication required")
			return
		}
		if role != required {
			m.prom.IncAuthRejection("forbidden")
			abortWith(c, http.StatusForbidden, "Forbidden", "You do not have permission to perform this action")
			return
		}
		c.Next()
	}
}
