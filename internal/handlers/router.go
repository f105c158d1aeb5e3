package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/middleware"
)

type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	LoginRateLimit float64
	LoginRateBurst int
}

// NewRouter mounts every route. socket serves GET /api/socket and does its
// own token check, since browsers cannot send headers on upgrade requests.
func NewRouter(h *Handler, socket gin.HandlerFunc, opts RouterOptions) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(h.Log),
		middleware.Recovery(h.Log),
		cors.New(corsConfig(opts.CORSOrigins)),
		middleware.Timeout(opts.RequestTimeout),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route not found"})
	})

	api := r.Group("/api")
	api.GET("/health", h.HealthCheck)
	api.GET("/socket", socket)

	limiter := middleware.NewRateLimiter(opts.LoginRateLimit, opts.LoginRateBurst, h.Log)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", limiter.Limit(), h.Login)
		authRoutes.POST("/validate-session", h.ValidateSession)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(h.Auth, h.Log))
	{
		protected.POST("/auth/logout", h.Logout)
		protected.GET("/profile", h.GetProfile)
		protected.GET("/doctors", h.GetDoctors)

		protected.GET("/appointments", h.GetAppointments)
		protected.PATCH("/appointments", h.UpdateAppointmentStatus)

		protected.GET("/patient-queue", h.GetPatientQueue)
		protected.PATCH("/patient-queue", h.UpdatePatientQueue)

		protected.GET("/schedules", h.GetSchedules)
		protected.POST("/schedules", h.AddScheduleSlot)
		protected.DELETE("/schedules", h.RemoveScheduleSlot)

		protected.GET("/notifications", h.GetNotifications)
		protected.PUT("/notifications", h.UpdateNotification)
		protected.DELETE("/notifications", h.DeleteNotification)

		protected.GET("/outbox/failed", h.GetFailedOutboxEvents)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", constvars.HeaderRequestID},
		ExposeHeaders:    []string{constvars.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
