package middlewares

import "github.com/gin-gonic/gin"

// abortWith stops the chain with the API error body. Middlewares cannot use
// the handlers package, so the shape is repeated here.
func abortWith(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"message":   message,
		"code":      code,
		"requestId": id,
	})
}
