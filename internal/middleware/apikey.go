package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequireAPIKey rejects any request that does not carry the static API key
// in the x-api-key header. It guards every /api route, reads included.
func (m *Middleware) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("x-api-key")

		if apiKey == "" || apiKey != m.apiKey {
			m.log.WithFields(logrus.Fields{
				"path":      c.Request.URL.Path,
				"ip":        c.ClientIP(),
				"requestId": GetRequestID(c),
			}).Warn("blocked request: invalid API key")

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized (API key required)",
			})
			return
		}

		c.Next()
	}
}
