package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fedlens/intel-pipeline/internal/services"
)

// PipelineHandler handles flywheel management operations
type PipelineHandler struct {
	flywheel *services.Flywheel
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(flywheel *services.Flywheel) *PipelineHandler {
	return &PipelineHandler{flywheel: flywheel}
}

// GetStatus returns the current flywheel state and last cycle stats
func (h *PipelineHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pipeline_status": h.flywheel.GetStatus(),
		"timestamp":       time.Now(),
	})
}

// Start launches the flywheel scheduler
func (h *PipelineHandler) Start(c *gin.Context) {
	if h.flywheel.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "Flywheel is already running"})
		return
	}

	h.flywheel.Start()
	c.JSON(http.StatusOK, gin.H{
		"message":   "Enrichment flywheel started successfully",
		"timestamp": time.Now(),
	})
}

// Stop halts the flywheel scheduler
func (h *PipelineHandler) Stop(c *gin.Context) {
	if !h.flywheel.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "Flywheel is not running"})
		return
	}

	h.flywheel.Stop()
	c.JSON(http.StatusOK, gin.H{
		"message":   "Enrichment flywheel stopped successfully",
		"timestamp": time.Now(),
	})
}

// Trigger runs a single enrichment cycle synchronously and returns its stats
func (h *PipelineHandler) Trigger(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	stats, err := h.flywheel.RunOnce(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cycle failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Cycle completed",
		"stats":     stats,
		"timestamp": time.Now(),
	})
}
