package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skynetdev/incidentes-api/internal/middleware"
	"github.com/skynetdev/incidentes-api/internal/models"
)

// RouterDeps bundles everything the route table needs.
type RouterDeps struct {
	Middleware *middleware.Middleware
	Auth       *AuthHandler
	Incidents  *IncidentHandler
	Reports    *ReportHandler

	FrontendURL string
	UploadDir   string
}

// NewRouter builds the gin engine with the full route table.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(deps.Middleware.RequestID())
	router.Use(deps.Middleware.ErrorHandler())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{deps.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-api-key"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Uploaded images are embedded by the frontend from another origin, so
	// the static group needs a relaxed resource policy.
	uploads := router.Group("/uploads/img", func(c *gin.Context) {
		c.Header("Cross-Origin-Resource-Policy", "cross-origin")
		c.Next()
	})
	uploads.Static("/", deps.UploadDir)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Incidentes API en funcionamiento.")
	})

	mw := deps.Middleware
	api := router.Group("/api", mw.RequireAPIKey())
	{
		api.GET("/incidentes", deps.Incidents.List)
		api.GET("/incidentes/mapa/jitter", deps.Incidents.MapData("jitter"))
		api.GET("/incidentes/mapa/cluster", deps.Incidents.MapData("cluster"))
		api.GET("/incidentes/:id", mw.ValidateObjectID("id"), deps.Incidents.GetByID)

		api.POST("/incidentes",
			mw.RequireAuth(),
			mw.RequireRole(models.RoleUser, models.RoleAdmin),
			deps.Incidents.Create)
		api.PUT("/incidentes/:id",
			mw.RequireAuth(),
			mw.RequireRole(models.RoleUser, models.RoleAdmin),
			mw.ValidateObjectID("id"),
			deps.Incidents.Update)
		api.DELETE("/incidentes/:id",
			mw.RequireAuth(),
			mw.RequireRole(models.RoleAdmin),
			mw.ValidateObjectID("id"),
			deps.Incidents.Delete)

		api.POST("/auth/register", deps.Auth.Register)
		api.POST("/auth/login", mw.LoginRateLimit(), deps.Auth.Login)
		api.PUT("/auth/change-password", mw.RequireAuth(), deps.Auth.ChangePassword)

		api.GET("/reports/incidentes/pdf", deps.Reports.PDF)
		api.GET("/reports/incidentes/xlsx", deps.Reports.XLSX)
	}

	router.NoRoute(func(c *gin.Context) {
		if c.Request.URL.Path == "/favicon.ico" {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Ruta no encontrada",
		})
	})

	return router
}
