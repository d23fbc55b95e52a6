package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/apperrors"
)

// ErrorHandler is the single place errors surfaced by controllers become
// HTTP responses. Controllers attach a tagged error with c.Error and abort;
// the handler classifies by kind, logs client errors at warn and server
// errors at error level, and writes the {success, error} envelope.
func (m *Middleware) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		appErr, ok := apperrors.As(last.Err)
		if !ok {
			appErr = apperrors.Internal("Error interno del servidor", last.Err)
		}
		status := appErr.Status()

		fields := logrus.Fields{
			"status":    status,
			"route":     c.Request.URL.Path,
			"requestId": GetRequestID(c),
		}
		if status >= 500 {
			m.log.WithFields(fields).WithError(appErr).Error("unhandled server error")
		} else {
			m.log.WithFields(fields).WithField("message", appErr.Message).Warn("client error")
		}

		if !c.Writer.Written() {
			c.JSON(status, gin.H{
				"success": false,
				"error":   appErr.Message,
			})
		}
	}
}
