// Package router assembles the gin engine and its routes.
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threatsmith/threatsmith/internal/config"
	"github.com/threatsmith/threatsmith/internal/interfaces/http/handlers"
	"github.com/threatsmith/threatsmith/internal/interfaces/http/middleware"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// Handlers bundles the route handlers the router mounts.
type Handlers struct {
	Health    *handlers.HealthHandler
	Projects  *handlers.ProjectHandler
	Models    *handlers.ModelHandler
	Documents *handlers.DocumentHandler
	Merge     *handlers.MergeHandler
	Settings  *handlers.SettingsHandler
}

// New builds the gin engine with middleware, operational endpoints, and the
// versioned API.
func New(cfg *config.ServerConfig, log logger.Logger, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		cors.Default(),
	)

	engine.GET("/health/live", h.Health.Live)
	engine.GET("/health/ready", h.Health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.PprofEnabled {
		pprof.Register(engine)
	}

	v1 := engine.Group("/api/v1")
	{
		projects := v1.Group("/projects")
		{
			projects.POST("", h.Projects.Create)
			projects.GET("", h.Projects.List)
			projects.GET("/:id", h.Projects.Get)
			projects.PUT("/:id", h.Projects.Update)
			projects.DELETE("/:id", h.Projects.Delete)
			projects.POST("/:id/components", h.Projects.AddComponent)
			projects.GET("/:id/components", h.Projects.ListComponents)
		}
		v1.DELETE("/components/:id", h.Projects.DeleteComponent)
		v1.GET("/vulnerabilities", h.Projects.ListVulnerabilities)

		models := v1.Group("/models")
		{
			models.POST("", h.Models.Create)
			models.GET("", h.Models.List)
			models.GET("/:id", h.Models.Get)
			models.PUT("/:id", h.Models.Update)
			models.DELETE("/:id", h.Models.Delete)
			models.POST("/:id/threats", h.Models.AddThreat)
			models.GET("/:id/threats", h.Models.ListThreats)
			models.POST("/:id/merge", h.Merge.Merge)
		}

		threats := v1.Group("/threats")
		{
			threats.GET("/:id", h.Models.GetThreat)
			threats.PUT("/:id", h.Models.UpdateThreat)
			threats.DELETE("/:id", h.Models.DeleteThreat)
			threats.POST("/:id/safeguards", h.Models.AddSafeguard)
			threats.GET("/:id/safeguards", h.Models.ListSafeguards)
		}
		v1.DELETE("/safeguards/:id", h.Models.DeleteSafeguard)

		documents := v1.Group("/documents")
		{
			documents.POST("", h.Documents.Store)
			documents.GET("/:id", h.Documents.Get)
		}

		settings := v1.Group("/settings")
		{
			settings.GET("/:key", h.Settings.Get)
			settings.PUT("/:key", h.Settings.Set)
		}
	}

	return engine
}
