package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/auth"
	"github.com/skynetdev/incidentes-api/internal/models"
)

const userKey = "user"

// RequireAuth validates the bearer token and attaches the verified claims to
// the request context. An expired token gets the same 401 as an invalid one.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized",
			})
			return
		}

		claims, err := m.auth.ValidateToken(token)
		if err != nil {
			m.log.WithFields(logrus.Fields{
				"requestId": GetRequestID(c),
				"error":     err.Error(),
			}).Warn("invalid or expired JWT")

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "No autorizado",
			})
			return
		}

		c.Set(userKey, claims)
		c.Next()
	}
}

// RequireRole allows only the given roles past. It must run after RequireAuth.
func (m *Middleware) RequireRole(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "No autenticado",
			})
			return
		}

		allowed := false
		for _, role := range allowedRoles {
			if claims.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			m.log.WithFields(logrus.Fields{
				"userId":    claims.UserID,
				"role":      claims.Role,
				"route":     c.Request.URL.Path,
				"ip":        c.ClientIP(),
				"requestId": GetRequestID(c),
			}).Warn("authorization denied")

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Acceso denegado",
			})
			return
		}

		c.Next()
	}
}

// GetUser extracts the verified claims from the request context.
func GetUser(c *gin.Context) (*models.Claims, bool) {
	value, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.Claims)
	return claims, ok
}
