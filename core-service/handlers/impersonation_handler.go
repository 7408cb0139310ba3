package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/store"
)

type StartImpersonationRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Reason string    `json:"reason" binding:"max=500"`
}

// ImpersonationResponse carries the session token that replaces the admin's own
type ImpersonationResponse struct {
	Token     string                       `json:"token"`
	ExpiresAt time.Time                    `json:"expires_at"`
	Session   *models.ImpersonationSession `json:"session,omitempty"`
}

// ListImpersonations lists open impersonation sessions
// @Summary List active impersonations
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {object} map[string][]models.ImpersonationSession
// @Failure 403 {object} map[string]string "Super admin access required"
// @Router /admin/impersonation [get]
func (h *Handler) ListImpersonations(c *gin.Context) {
	sessions, err := h.stores.Impersonations.ListActive(c.Request.Context(), h.now())
	if err != nil {
		httpx.Internal(c, h.log, "Failed to list impersonations", err)
		return
	}
	if sessions == nil {
		sessions = []models.ImpersonationSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// StartImpersonation signs the admin in as another user
// @Summary Start impersonation
// @Tags admin
// @Accept json
// @Produce json
// @Param request body handlers.StartImpersonationRequest true "Target user"
// @Security CookieAuth
// @Success 201 {object} handlers.ImpersonationResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 409 {object} map[string]string "Already impersonating"
// @Router /admin/impersonation [post]
func (h *Handler) StartImpersonation(c *gin.Context) {
	var req StartImpersonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, impersonating := auth.Impersonator(c); impersonating {
		httpx.Error(c, http.StatusConflict, "Stop the current impersonation first")
		return
	}

	ctx := c.Request.Context()
	admin, _ := auth.ActingAdmin(c)
	if req.UserID == admin.ID {
		httpx.Error(c, http.StatusBadRequest, "Cannot impersonate yourself")
		return
	}
	target, err := h.stores.Users.GetByID(ctx, req.UserID)
	if err != nil {
		httpx.StoreError(c, h.log, err, "User not found")
		return
	}
	if target.IsSuperAdmin {
		httpx.Error(c, http.StatusForbidden, "Cannot impersonate another super admin")
		return
	}

	now := h.now()
	session := models.ImpersonationSession{
		AdminID:      admin.ID,
		TargetUserID: target.ID,
		Reason:       req.Reason,
		StartedAt:    now,
		ExpiresAt:    now.Add(h.opts.ImpersonationTTL),
	}
	if err := h.stores.Impersonations.Create(ctx, &session); err != nil {
		httpx.Internal(c, h.log, "Failed to record impersonation", err)
		return
	}

	token, claims, err := h.sessions.Issue(target, &admin.ID, h.opts.ImpersonationTTL)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to issue session", err)
		return
	}
	h.revokeCurrent(c)
	auth.SetSessionCookie(c, h.opts.CookieName, token, h.opts.ImpersonationTTL, h.opts.SecureCookies)

	logger.FromContext(c, h.log).Info("impersonation started",
		zap.String("admin_id", admin.ID.String()),
		zap.String("target_user_id", target.ID.String()),
		zap.String("session_id", session.ID.String()))
	c.JSON(http.StatusCreated, ImpersonationResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Session:   &session,
	})
}

// StopImpersonation ends the admin's impersonation and restores their session
// @Summary Stop impersonation
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {object} handlers.ImpersonationResponse
// @Failure 400 {object} map[string]string "Not impersonating"
// @Router /admin/impersonation [delete]
func (h *Handler) StopImpersonation(c *gin.Context) {
	admin, impersonating := auth.Impersonator(c)
	if !impersonating {
		httpx.Error(c, http.StatusBadRequest, "No impersonation in progress")
		return
	}

	ctx := c.Request.Context()
	now := h.now()
	session, err := h.stores.Impersonations.GetActiveByAdmin(ctx, admin.ID, now)
	switch {
	case err == nil:
		if err := h.stores.Impersonations.End(ctx, session.ID, now); err != nil {
			httpx.Internal(c, h.log, "Failed to end impersonation", err)
			return
		}
	case !errors.Is(err, store.ErrNotFound):
		httpx.Internal(c, h.log, "Failed to load impersonation", err)
		return
	}

	token, claims, err := h.sessions.Issue(admin, nil, 0)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to issue session", err)
		return
	}
	h.revokeCurrent(c)
	auth.SetSessionCookie(c, h.opts.CookieName, token, h.sessions.TTL(), h.opts.SecureCookies)

	logger.FromContext(c, h.log).Info("impersonation ended", zap.String("admin_id", admin.ID.String()))
	c.JSON(http.StatusOK, ImpersonationResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time})
}

// revokeCurrent blocks the token the request came in with.
func (h *Handler) revokeCurrent(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok || id.SessionID == "" {
		return
	}
	if err := h.cache.RevokeSession(c.Request.Context(), id.SessionID, id.ExpiresAt); err != nil {
		logger.FromContext(c, h.log).Warn("session not revoked", zap.Error(err))
	}
}
