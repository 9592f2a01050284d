package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
)

const (
	eventHeartbeat = "heartbeat"
	eventSource    = "thlink-backend"
)

type heartbeatPayload struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// handleEvents streams the caller's workspace events as server-sent events until the client leaves.
func (h *httpHandler) handleEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.events.Subscribe(ctx, c.GetString(workspaceContextKey))
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case tick := <-ticker.C:
			c.SSEvent(eventHeartbeat, heartbeatPayload{Source: eventSource, Timestamp: tick.UTC()})
			return true
		}
	})
}

// handleBlobDownload serves a document body to holders of a signed URL.
func (h *httpHandler) handleBlobDownload(c *gin.Context) {
	id := c.Param("id")
	if err := h.verifier.Verify(id, c.Query("token")); err != nil {
		h.logger.Info("blob token rejected", zap.String("content_id", id), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	body, err := h.blobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.logger.Error("blob read failed", zap.String("content_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", body)
}
