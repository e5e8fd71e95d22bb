package api

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensor-endpoint/internal/response"
)

// GetDevice returns the same snapshot document the sensor protocol serves on GET /device.
func (h *Handler) GetDevice(c *gin.Context) {
	var buf bytes.Buffer
	w := response.NewWriter(&buf)
	response.WriteSnapshot(w, h.snapshots.Snapshot())
	if err := w.Flush(); err != nil {
		h.log.Error("failed to render snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render snapshot"})
		return
	}

	c.Data(http.StatusOK, response.ContentType, buf.Bytes())
}

// GetHealth reports liveness and database reachability.
func (h *Handler) GetHealth(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
