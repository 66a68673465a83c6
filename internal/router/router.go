package router

import (
	"net/http"
	"time"

	"dispatch-service/config"
	"dispatch-service/internal/handler"
	"dispatch-service/internal/jwt"
	"dispatch-service/internal/middleware"
	"dispatch-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Redirect *handler.RedirectHandler
	Link     *handler.LinkHandler
	Stats    *handler.StatsHandler
	Monitor  *handler.MonitorHandler
	Template *handler.TemplateHandler
	User     *handler.UserHandler
	Batch    *handler.BatchHandler
}

func Router(cfg *config.Config, log *zap.Logger, h *Handlers, jwtManager *jwt.Manager, limiter *service.RateLimiter) *gin.Engine {
	gin.SetMode(cfg.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(limiter, "api", cfg.RateLimit.APIPerHour, time.Hour))
		{
			auth.POST("/register", h.User.Register)
			auth.POST("/login", h.User.Login)
		}

		authed := api.Group("")
		authed.Use(middleware.JWTAuth(jwtManager))
		{
			authed.GET("/profile", h.User.Profile)

			links := authed.Group("/links")
			{
				links.POST("", h.Link.Create)
				links.GET("", h.Link.List)
				links.GET("/:link_id", h.Link.Get)
				links.PUT("/:link_id", h.Link.Update)
				links.DELETE("/:link_id", h.Link.Delete)
				links.POST("/:link_id/targets", h.Link.CreateTarget)
				links.PUT("/:link_id/targets/:target_id", h.Link.UpdateTarget)
				links.DELETE("/:link_id/targets/:target_id", h.Link.DeleteTarget)
			}

			stats := authed.Group("/stats")
			{
				stats.GET("/system", h.Stats.System)
				stats.GET("/realtime", h.Stats.Realtime)
				stats.GET("/links/:link_id", h.Stats.Link)
			}
			authed.GET("/logs", h.Stats.Logs)

			templates := authed.Group("/templates")
			{
				templates.POST("", h.Template.Create)
				templates.GET("", h.Template.List)
				templates.GET("/:id", h.Template.Get)
				templates.PUT("/:id", h.Template.Update)
				templates.DELETE("/:id", h.Template.Delete)
				templates.POST("/:id/links", h.Template.CreateLinks)
			}

			batch := authed.Group("/batch")
			{
				batch.POST("/import", h.Batch.ImportCSV)
				batch.GET("/export", h.Batch.ExportCSV)
				batch.POST("/apply", h.Batch.Apply)
			}

			monitor := authed.Group("/monitor")
			{
				monitor.GET("/alerts", h.Monitor.ListAlerts)
				monitor.POST("/alerts/:id/ack", h.Monitor.AcknowledgeAlert)
				monitor.POST("/alerts/:id/resolve", h.Monitor.ResolveAlert)
				monitor.GET("/config", h.Monitor.GetConfig)
				monitor.PUT("/config", middleware.AdminOnly(), h.Monitor.UpdateConfig)
				monitor.POST("/block-ip", middleware.AdminOnly(), h.Monitor.BlockIP)
				monitor.DELETE("/block-ip/:ip", middleware.AdminOnly(), h.Monitor.UnblockIP)
			}

			users := authed.Group("/users")
			users.Use(middleware.AdminOnly())
			{
				users.GET("", h.User.List)
				users.PUT("/:id", h.User.Update)
				users.DELETE("/:id", h.User.Delete)
			}
		}
	}

	// The redirect route is registered last so /api, /health and /metrics
	// are matched first.
	r.GET("/:business_unit/:link_id",
		middleware.RateLimit(limiter, "redirect", cfg.RateLimit.RedirectPerHour, time.Hour),
		h.Redirect.Redirect)

	return r
}
