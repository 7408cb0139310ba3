package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/invitation"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

type InvitationResponse struct {
	ID             uuid.UUID               `json:"id"`
	OrganizationID uuid.UUID               `json:"organization_id"`
	Email          string                  `json:"email"`
	Role           string                  `json:"role"`
	Status         models.InvitationStatus `json:"status"`
	ExpiresAt      time.Time               `json:"expires_at"`
	RespondedAt    *time.Time              `json:"responded_at,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	InviteURL      string                  `json:"invite_url,omitempty"`
}

// InvitationPreview is what an invitee sees before signing in.
type InvitationPreview struct {
	OrganizationName string                  `json:"organization_name"`
	Email            string                  `json:"email"`
	Role             string                  `json:"role"`
	Status           models.InvitationStatus `json:"status"`
	ExpiresAt        time.Time               `json:"expires_at"`
}

func (h *Handler) toInvitationResponse(inv models.OrganizationInvitation) InvitationResponse {
	return InvitationResponse{
		ID:             inv.ID,
		OrganizationID: inv.OrganizationID,
		Email:          inv.Email,
		Role:           inv.Role.Slug,
		Status:         invitation.EffectiveStatus(&inv, h.now()),
		ExpiresAt:      inv.ExpiresAt,
		RespondedAt:    inv.RespondedAt,
		CreatedAt:      inv.CreatedAt,
	}
}

func (h *Handler) inviteURL(token string) string {
	return strings.TrimRight(h.opts.FrontendURL, "/") + "/invitations/" + token
}

// ListInvitations lists an organization's invitations
// @Summary List invitations
// @Tags invitations
// @Produce json
// @Param id path string true "Organization ID"
// @Security CookieAuth
// @Success 200 {object} map[string][]handlers.InvitationResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id}/invitations [get]
func (h *Handler) ListInvitations(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, auth.MustUserID(c), permission.ResourceInvitations, permission.ActionRead)
	if !ok {
		return
	}

	invitations, err := h.stores.Invitations.ListByOrganization(c.Request.Context(), org.ID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch invitations", err)
		return
	}
	items := make([]InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		items = append(items, h.toInvitationResponse(inv))
	}
	c.JSON(http.StatusOK, gin.H{"invitations": items})
}

// CreateInvitation invites an email address into an organization
// @Summary Invite member
// @Description Creates an invitation if the organization's member limit allows it and emails the invitee
// @Tags invitations
// @Accept json
// @Produce json
// @Param id path string true "Organization ID"
// @Param invitation body handlers.CreateInvitationRequest true "Invitee"
// @Security CookieAuth
// @Success 201 {object} handlers.InvitationResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 403 {object} map[string]interface{} "Forbidden or plan limit reached"
// @Failure 404 {object} map[string]string "Organization not found"
// @Failure 409 {object} map[string]string "Already a member or invited"
// @Router /organizations/{id}/invitations [post]
func (h *Handler) CreateInvitation(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "A valid email address is required")
		return
	}

	ctx := c.Request.Context()
	inviter, _ := auth.CurrentUser(c)
	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, inviter.ID, permission.ResourceInvitations, permission.ActionCreate)
	if !ok {
		return
	}

	roleSlug := req.Role
	if roleSlug == "" {
		roleSlug = models.RoleViewer
	}
	if roleSlug == models.RoleOwner {
		httpx.Error(c, http.StatusBadRequest, "Invitations cannot grant ownership")
		return
	}
	role, err := h.stores.Roles.GetBySlug(ctx, roleSlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.Error(c, http.StatusBadRequest, "Unknown role")
			return
		}
		httpx.Internal(c, h.log, "Failed to load role", err)
		return
	}

	email := invitation.NormalizeEmail(req.Email)
	if existing, err := h.stores.Users.GetByEmail(ctx, email); err == nil {
		if _, err := h.stores.Members.Get(ctx, org.ID, existing.ID); err == nil {
			httpx.Error(c, http.StatusConflict, "User is already a member of this organization")
			return
		}
	}
	now := h.now()
	if _, err := h.stores.Invitations.FindPending(ctx, org.ID, email, now); err == nil {
		httpx.Error(c, http.StatusConflict, "A pending invitation already exists for this email")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		httpx.Internal(c, h.log, "Failed to check pending invitations", err)
		return
	}

	decision, err := h.usage.CheckMemberLimit(ctx, org.ID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to check member limit", err)
		return
	}
	if !decision.Allowed {
		httpx.LimitReached(c, decision)
		return
	}

	token, hash, err := invitation.NewToken()
	if err != nil {
		httpx.Internal(c, h.log, "Failed to create invitation", err)
		return
	}
	inv := models.OrganizationInvitation{
		OrganizationID: org.ID,
		Email:          email,
		RoleID:         role.ID,
		TokenHash:      hash,
		InvitedByID:    inviter.ID,
		Status:         models.InvitationPending,
		ExpiresAt:      invitation.ExpiresAt(now, h.opts.InvitationTTL),
	}
	if err := h.stores.Invitations.Create(ctx, &inv); err != nil {
		httpx.StoreError(c, h.log, err, "Organization not found")
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceMembers, org.ID)
	inv.Role = *role

	log := logger.FromContext(c, h.log)
	if h.notifier != nil {
		err := h.notifier.SendInvitationEmail(ctx, clients.InvitationEmailRequest{
			Email:            email,
			OrganizationName: org.Name,
			InviterName:      inviter.DisplayName(),
			RoleName:         role.Name,
			AcceptURL:        h.inviteURL(token),
			ExpiresAt:        inv.ExpiresAt.Format(time.RFC1123),
		})
		if err != nil {
			log.Warn("invitation email not sent", zap.String("invitation_id", inv.ID.String()), zap.Error(err))
		}
	}

	log.Info("invitation created",
		zap.String("organization_id", org.ID.String()),
		zap.String("invitation_id", inv.ID.String()),
		zap.String("role", role.Slug))
	resp := h.toInvitationResponse(inv)
	resp.InviteURL = h.inviteURL(token)
	c.JSON(http.StatusCreated, resp)
}

// RevokeInvitation cancels a pending invitation
// @Summary Revoke invitation
// @Tags invitations
// @Param id path string true "Organization ID"
// @Param invitationId path string true "Invitation ID"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Not pending"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Invitation not found"
// @Router /organizations/{id}/invitations/{invitationId} [delete]
func (h *Handler) RevokeInvitation(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	invID, ok := httpx.UUIDParam(c, "invitationId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, auth.MustUserID(c), permission.ResourceInvitations, permission.ActionDelete)
	if !ok {
		return
	}

	inv, err := h.stores.Invitations.GetByID(ctx, invID)
	if err != nil || inv.OrganizationID != org.ID {
		if err == nil || errors.Is(err, store.ErrNotFound) {
			httpx.Error(c, http.StatusNotFound, "Invitation not found")
			return
		}
		httpx.Internal(c, h.log, "Failed to load invitation", err)
		return
	}
	if err := invitation.CanRevoke(inv); err != nil {
		httpx.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	if err := h.stores.Invitations.UpdateStatus(ctx, inv.ID, models.InvitationRevoked, &now); err != nil {
		h.statusUpdateError(c, err)
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceMembers, org.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked"})
}

// PreviewInvitation shows who an invitation is for without signing in
// @Summary Preview invitation
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} handlers.InvitationPreview
// @Failure 404 {object} map[string]string "Invitation not found"
// @Router /invitations/{token} [get]
func (h *Handler) PreviewInvitation(c *gin.Context) {
	inv, ok := h.invitationByToken(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, InvitationPreview{
		OrganizationName: inv.Organization.Name,
		Email:            inv.Email,
		Role:             inv.Role.Slug,
		Status:           invitation.EffectiveStatus(inv, h.now()),
		ExpiresAt:        inv.ExpiresAt,
	})
}

// AcceptInvitation joins the caller to the inviting organization
// @Summary Accept invitation
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Expired or no longer pending"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Invitation is for another email"
// @Failure 404 {object} map[string]string "Invitation not found"
// @Failure 409 {object} map[string]string "Already a member"
// @Router /invitations/{token}/accept [post]
func (h *Handler) AcceptInvitation(c *gin.Context) {
	inv, ok := h.invitationByToken(c)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(c)
	now := h.now()
	if !h.checkRespond(c, inv, user, now) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.stores.Members.Get(ctx, inv.OrganizationID, user.ID); err == nil {
		httpx.Error(c, http.StatusConflict, "You are already a member of this organization")
		return
	}

	inv.RespondedAt = &now
	member := models.OrganizationMember{
		OrganizationID: inv.OrganizationID,
		UserID:         user.ID,
		RoleID:         inv.RoleID,
		JoinedAt:       now,
	}
	if err := h.stores.Invitations.Accept(ctx, inv, &member); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.Error(c, http.StatusBadRequest, invitation.ErrNotPending.Error())
		case errors.Is(err, store.ErrConflict):
			httpx.Error(c, http.StatusConflict, "You are already a member of this organization")
		default:
			httpx.Internal(c, h.log, "Failed to accept invitation", err)
		}
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceMembers, inv.OrganizationID)

	logger.FromContext(c, h.log).Info("invitation accepted",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("organization_id", inv.OrganizationID.String()),
		zap.String("user_id", user.ID.String()))
	c.JSON(http.StatusOK, gin.H{
		"message":         "Invitation accepted",
		"organization_id": inv.OrganizationID,
		"role":            inv.Role.Slug,
	})
}

// DeclineInvitation declines an invitation addressed to the caller
// @Summary Decline invitation
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Expired or no longer pending"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Invitation is for another email"
// @Failure 404 {object} map[string]string "Invitation not found"
// @Router /invitations/{token}/decline [post]
func (h *Handler) DeclineInvitation(c *gin.Context) {
	inv, ok := h.invitationByToken(c)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(c)
	now := h.now()
	if !h.checkRespond(c, inv, user, now) {
		return
	}

	ctx := c.Request.Context()
	if err := h.stores.Invitations.UpdateStatus(ctx, inv.ID, models.InvitationDeclined, &now); err != nil {
		h.statusUpdateError(c, err)
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceMembers, inv.OrganizationID)
	c.JSON(http.StatusOK, gin.H{"message": "Invitation declined"})
}

func (h *Handler) invitationByToken(c *gin.Context) (*models.OrganizationInvitation, bool) {
	token := c.Param("token")
	if token == "" {
		httpx.Error(c, http.StatusNotFound, "Invitation not found")
		return nil, false
	}
	inv, err := h.stores.Invitations.GetByTokenHash(c.Request.Context(), invitation.HashToken(token))
	if err != nil {
		httpx.StoreError(c, h.log, err, "Invitation not found")
		return nil, false
	}
	return inv, true
}

// statusUpdateError treats a lost race with another response as a non-pending invitation.
func (h *Handler) statusUpdateError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httpx.Error(c, http.StatusBadRequest, invitation.ErrNotPending.Error())
		return
	}
	httpx.Internal(c, h.log, "Failed to update invitation", err)
}

// checkRespond maps invitation rule violations onto 403 and 400.
func (h *Handler) checkRespond(c *gin.Context, inv *models.OrganizationInvitation, user *models.User, now time.Time) bool {
	err := invitation.CanRespond(inv, user.Email, now)
	switch {
	case err == nil:
		return true
	case errors.Is(err, invitation.ErrEmailMismatch):
		httpx.Error(c, http.StatusForbidden, "This invitation was sent to a different email address")
	case errors.Is(err, invitation.ErrExpired), errors.Is(err, invitation.ErrNotPending):
		httpx.Error(c, http.StatusBadRequest, err.Error())
	default:
		httpx.Internal(c, h.log, "Failed to check invitation", err)
	}
	return false
}
