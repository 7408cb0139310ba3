package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/notification-service/services"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/clients"
)

// HandleWebSocket opens the caller's push channel
// @Summary WebSocket connection
// @Description Upgrades to a WebSocket that receives {type, level, title, message, timestamp, data} frames for the session user
// @Tags websocket
// @Security CookieAuth
// @Router /ws/notifications [get]
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID := auth.MustUserID(c).String()
	if err := h.ws.Serve(c.Writer, c.Request, userID); err != nil {
		// The upgrader has already written the HTTP error.
		h.log.Debug("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// SendWebSocketMessage pushes a message to a user's open dashboards
// @Summary Push to a user
// @Description Offline users are not an error; delivered is 0
// @Tags websocket
// @Accept json
// @Produce json
// @Param request body clients.PushRequest true "Message"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /ws/send [post]
func (h *Handler) SendWebSocketMessage(c *gin.Context) {
	var req clients.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	level := req.Level
	if level == "" {
		level = "info"
	}

	delivered, err := h.ws.SendToUser(req.UserID, services.PushMessage{
		Type:    req.Type,
		Level:   level,
		Title:   req.Title,
		Message: req.Message,
		Data:    req.Data,
	})
	if err != nil && !errors.Is(err, services.ErrNotConnected) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": req.UserID, "delivered": delivered})
}

// WebSocketStats reports open connections
// @Summary WebSocket stats
// @Tags websocket
// @Produce json
// @Success 200 {object} map[string]int
// @Router /ws/stats [get]
func (h *Handler) WebSocketStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connections": h.ws.GetConnectionCount(),
		"users":       len(h.ws.GetConnectedUsers()),
	})
}
