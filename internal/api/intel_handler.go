package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fedlens/intel-pipeline/internal/insights"
	"github.com/fedlens/intel-pipeline/internal/metrics"
)

// IntelHandler handles entity intelligence operations
type IntelHandler struct {
	insights *insights.Engine
}

// NewIntelHandler creates a new intelligence handler
func NewIntelHandler(engine *insights.Engine) *IntelHandler {
	return &IntelHandler{insights: engine}
}

// GetEntityInsights generates and returns insights for one entity
func (h *IntelHandler) GetEntityInsights(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity ID"})
		return
	}

	generated, err := h.insights.GenerateEntityInsights(c.Request.Context(), entityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate insights: " + err.Error()})
		return
	}
	metrics.InsightsGenerated.Add(float64(len(generated)))

	c.JSON(http.StatusOK, gin.H{
		"entity_id": entityID,
		"insights":  generated,
		"count":     len(generated),
		"timestamp": time.Now(),
	})
}
