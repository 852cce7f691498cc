package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fedlens/intel-pipeline/internal/metrics"
	"github.com/fedlens/intel-pipeline/internal/quality"
)

// QualityHandler handles data-quality operations
type QualityHandler struct {
	agent *quality.Agent
}

// NewQualityHandler creates a new quality handler
func NewQualityHandler(agent *quality.Agent) *QualityHandler {
	return &QualityHandler{agent: agent}
}

// RunAudit executes the full audit sequence and returns its per-pass results
func (h *QualityHandler) RunAudit(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	results := h.agent.RunDailyAudit(ctx)
	for _, result := range results {
		if result.Fixed > 0 {
			metrics.AuditFixes.WithLabelValues(result.Type).Add(float64(result.Fixed))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"timestamp": time.Now(),
	})
}

// GetScore returns the aggregate data quality score
func (h *QualityHandler) GetScore(c *gin.Context) {
	score, err := h.agent.GetQualityScore()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute quality score: " + err.Error()})
		return
	}
	metrics.QualityScore.Set(float64(score))

	c.JSON(http.StatusOK, gin.H{
		"quality_score": score,
		"timestamp":     time.Now(),
	})
}
