package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/events"
)

const streamHeartbeatInterval = 25 * time.Second

// handleEventStream serves the server-sent-events feed of match
// notifications. EventSource cannot set request headers, so the backend
// token is accepted via the access_token query parameter as well as the
// Authorization header.
func (h *httpHandler) handleEventStream(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream_unavailable"})
		return
	}

	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("stream token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming_unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream, cleanup := h.events.Subscribe(c.Request.Context(), userID)
	defer cleanup()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case message, open := <-stream:
			if !open {
				return
			}
			if err := writeEvent(c, message); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(c *gin.Context, message events.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if _, err := c.Writer.WriteString("event: " + message.EventType + "\n"); err != nil {
		return err
	}
	_, err = c.Writer.WriteString("data: " + string(data) + "\n\n")
	return err
}
