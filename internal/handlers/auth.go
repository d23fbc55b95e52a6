package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/apperrors"
	"github.com/skynetdev/incidentes-api/internal/auth"
	"github.com/skynetdev/incidentes-api/internal/middleware"
	"github.com/skynetdev/incidentes-api/internal/models"
)

// AuthHandler exposes registration, login and password change.
type AuthHandler struct {
	auth *auth.Service
	log  *logrus.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *auth.Service, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, log: log}
}

// Register creates a new account with role=user.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.Validation("Debe ingresar usuario y contraseña"))
		c.Abort()
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	h.log.WithFields(logrus.Fields{
		"userId":   user.ID.Hex(),
		"username": user.Username,
		"ip":       c.ClientIP(),
	}).Info("user registered")

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    user,
	})
}

// Login verifies credentials and returns a token. The lockout and the
// uniform failure message live in the auth service.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.Auth("Credenciales no validas"))
		c.Abort()
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	h.log.WithFields(logrus.Fields{
		"userId":    result.User.ID.Hex(),
		"username":  result.User.Username,
		"ip":        c.ClientIP(),
		"requestId": middleware.GetRequestID(c),
	}).Info("user logged in")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
		"user":    result.User,
	})
}

// ChangePassword updates the authenticated user's password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.GetUser(c)
	if !ok {
		c.Error(apperrors.Auth("No autenticado"))
		c.Abort()
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.Validation("Faltan datos"))
		c.Abort()
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	h.log.WithFields(logrus.Fields{
		"userId": claims.UserID,
		"ip":     c.ClientIP(),
	}).Info("user changed password")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Contraseña actualizada correctamente",
	})
}
