package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/auth"
)

const requestIDKey = "requestId"

// Middleware bundles the cross-cutting request checks. All of them answer
// directly with the API's {success, error} envelope on rejection.
type Middleware struct {
	auth   *auth.Service
	apiKey string
	log    *logrus.Logger
}

// New creates the middleware set.
func New(authService *auth.Service, apiKey string, log *logrus.Logger) *Middleware {
	return &Middleware{
		auth:   authService,
		apiKey: apiKey,
		log:    log,
	}
}

// RequestID tags every request with a correlation id, echoed in the
// X-Request-ID response header and attached to every log line.
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// GetRequestID returns the correlation id of the current request.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
