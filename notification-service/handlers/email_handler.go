package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/logger"
)

// SendInvitationEmail delivers an organization invitation
// @Summary Send invitation email
// @Tags email
// @Accept json
// @Produce json
// @Param request body clients.InvitationEmailRequest true "Invitation"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 502 {object} map[string]string "Delivery failed"
// @Router /notifications/email/invitation [post]
func (h *Handler) SendInvitationEmail(c *gin.Context) {
	var req clients.InvitationEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	if err := h.email.SendInvitationEmail(c.Request.Context(), req); err != nil {
		logger.FromContext(c, h.log).Error("Failed to send invitation email", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to send email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
}

// SendSubscriptionEmail delivers a subscription change notice
// @Summary Send subscription email
// @Tags email
// @Accept json
// @Produce json
// @Param request body clients.SubscriptionEmailRequest true "Subscription notice"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 502 {object} map[string]string "Delivery failed"
// @Router /notifications/email/subscription [post]
func (h *Handler) SendSubscriptionEmail(c *gin.Context) {
	var req clients.SubscriptionEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	if err := h.email.SendSubscriptionEmail(c.Request.Context(), req); err != nil {
		logger.FromContext(c, h.log).Error("Failed to send subscription email", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to send email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
}
