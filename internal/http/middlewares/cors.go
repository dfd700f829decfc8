package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware echoes allowed origins. A "*" entry allows any origin,
// without credentials.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false

	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		if origin != "" {
			_, ok := allowed[origin]

			switch {
			case ok:
				ctx.Header("Access-Control-Allow-Origin", origin)
				ctx.Header("Access-Control-Allow-Credentials", "true")
				ctx.Header("Vary", "Origin")
			case wildcard:
				ctx.Header("Access-Control-Allow-Origin", "*")
			}

			if ok || wildcard {
				ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				ctx.Header("Access-Control-Allow-Headers", "Authorization,Content-Type,If-Match,If-None-Match,X-Request-Id")
				ctx.Header("Access-Control-Expose-Headers", "ETag,X-Request-Id,Retry-After")
			}
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
