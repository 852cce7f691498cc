package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fedlens/intel-pipeline/internal/database"
	"github.com/fedlens/intel-pipeline/internal/insights"
	"github.com/fedlens/intel-pipeline/internal/quality"
	"github.com/fedlens/intel-pipeline/internal/services"
)

// Dependencies carries the wired services the API surface exposes
type Dependencies struct {
	DB       *database.DB
	Flywheel *services.Flywheel
	Agent    *quality.Agent
	Insights *insights.Engine
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	pipelineHandler := NewPipelineHandler(deps.Flywheel)
	qualityHandler := NewQualityHandler(deps.Agent)
	intelHandler := NewIntelHandler(deps.Insights)

	r.GET("/health", func(c *gin.Context) {
		if err := deps.DB.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  deps.DB.GetStats(),
			"timestamp": time.Now(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/pipeline/status", pipelineHandler.GetStatus)
		v1.POST("/pipeline/trigger", pipelineHandler.Trigger)
		v1.POST("/pipeline/start", pipelineHandler.Start)
		v1.POST("/pipeline/stop", pipelineHandler.Stop)

		v1.POST("/quality/audit", qualityHandler.RunAudit)
		v1.GET("/quality/score", qualityHandler.GetScore)

		v1.GET("/entities/:id/insights", intelHandler.GetEntityInsights)
	}
}
