package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects write requests whose body is not declared as JSON.
// Parameters such as charset are ignored.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		if c.ContentType() != gin.MIMEJSON {
			abortWith(c, http.StatusUnsupportedMediaType, "UnsupportedMediaType", "Content-Type must be application/json")
			return
		}
		c.Next()
	}
}
