package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'"
	// the docs page loads swagger-ui from a CDN and boots it inline
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

func SecurityHeaders(docsPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		if strings.HasPrefix(c.Request.URL.Path, docsPrefix) {
			c.Header("Content-Security-Policy", docsCSP)
		} else {
			c.Header("Content-Security-Policy", defaultCSP)
		}
		c.Next()
	}
}
