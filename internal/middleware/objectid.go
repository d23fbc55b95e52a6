package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidateObjectID rejects malformed document ids before they reach a
// controller. It checks format only; existence is the service's business.
// The parameter name is configurable so nested routes can reuse it.
func (m *Middleware) ValidateObjectID(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(paramName)

		if _, err := primitive.ObjectIDFromHex(id); err != nil {
			m.log.WithFields(logrus.Fields{
				"param":     paramName,
				"value":     id,
				"route":     c.Request.URL.Path,
				"method":    c.Request.Method,
				"requestId": GetRequestID(c),
			}).Warn("received an invalid ObjectId")

			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   fmt.Sprintf("Este Id no es válido: %s", id),
			})
			return
		}

		c.Next()
	}
}
