// Package handlers exposes email delivery and WebSocket push to the other
// services and the dashboard.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/notification-service/services"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/clients"
)

// EmailSender renders and delivers the transactional emails.
type EmailSender interface {
	SendInvitationEmail(ctx context.Context, req clients.InvitationEmailRequest) error
	SendSubscriptionEmail(ctx context.Context, req clients.SubscriptionEmailRequest) error
}

type Handler struct {
	email EmailSender
	ws    *services.WebSocketManager
	log   *zap.Logger
}

func New(email EmailSender, ws *services.WebSocketManager, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{email: email, ws: ws, log: log.Named("notification")}
}

func (h *Handler) Register(router gin.IRouter, authn *auth.Authenticator) {
	email := router.Group("/api/notifications/email")
	email.POST("/invitation", h.SendInvitationEmail)
	email.POST("/subscription", h.SendSubscriptionEmail)

	router.GET("/ws/notifications", authn.RequireAuth(), h.HandleWebSocket)
	router.POST("/ws/send", h.SendWebSocketMessage)
	router.GET("/ws/stats", h.WebSocketStats)
}
