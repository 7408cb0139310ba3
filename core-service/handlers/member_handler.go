package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

type MemberResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
	Role      string    `json:"role"`
	IsOwner   bool      `json:"is_owner"`
	JoinedAt  time.Time `json:"joined_at"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListMembers lists the members of an organization
// @Summary List members
// @Tags members
// @Produce json
// @Param id path string true "Organization ID"
// @Security CookieAuth
// @Success 200 {object} map[string][]handlers.MemberResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, auth.MustUserID(c), permission.ResourceMembers, permission.ActionRead)
	if !ok {
		return
	}

	members, err := h.stores.Members.List(c.Request.Context(), org.ID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch members", err)
		return
	}

	items := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, MemberResponse{
			UserID:    m.UserID,
			Email:     m.User.Email,
			Name:      m.User.DisplayName(),
			AvatarURL: m.User.AvatarURL,
			Role:      m.Role.Slug,
			IsOwner:   m.UserID == org.OwnerID,
			JoinedAt:  m.JoinedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": items})
}

// UpdateMemberRole changes a member's role
// @Summary Update member role
// @Tags members
// @Accept json
// @Produce json
// @Param id path string true "Organization ID"
// @Param userId path string true "User ID"
// @Param role body handlers.UpdateMemberRoleRequest true "New role slug"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Member not found"
// @Router /organizations/{id}/members/{userId} [put]
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := httpx.UUIDParam(c, "userId")
	if !ok {
		return
	}
	var req UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, auth.MustUserID(c), permission.ResourceMembers, permission.ActionUpdate)
	if !ok {
		return
	}
	if targetID == org.OwnerID {
		httpx.Error(c, http.StatusBadRequest, "The owner's role cannot be changed")
		return
	}
	if req.Role == models.RoleOwner {
		httpx.Error(c, http.StatusBadRequest, "Ownership cannot be assigned through a role change")
		return
	}

	role, err := h.stores.Roles.GetBySlug(ctx, req.Role)
	if err != nil {
		httpx.StoreError(c, h.log, err, "Role not found")
		return
	}
	if err := h.stores.Members.UpdateRole(ctx, org.ID, targetID, role.ID); err != nil {
		httpx.StoreError(c, h.log, err, "Member not found")
		return
	}
	h.perms.Forget(ctx, org.ID, targetID)

	logger.FromContext(c, h.log).Info("member role changed",
		zap.String("organization_id", org.ID.String()),
		zap.String("member_id", targetID.String()),
		zap.String("role", role.Slug))
	c.JSON(http.StatusOK, gin.H{"message": "Member role updated", "role": role.Slug})
}

// RemoveMember removes a member from an organization
// @Summary Remove member
// @Tags members
// @Param id path string true "Organization ID"
// @Param userId path string true "User ID"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Owner cannot be removed"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Member not found"
// @Router /organizations/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := httpx.UUIDParam(c, "userId")
	if !ok {
		return
	}
	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, auth.MustUserID(c), permission.ResourceMembers, permission.ActionDelete)
	if !ok {
		return
	}
	h.removeMember(c, org, targetID)
}

// LeaveOrganization removes the caller from an organization
// @Summary Leave organization
// @Tags members
// @Param id path string true "Organization ID"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Owner cannot leave"
// @Failure 403 {object} map[string]string "Not a member"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id}/leave [post]
func (h *Handler) LeaveOrganization(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	userID := auth.MustUserID(c)
	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, userID, "", "")
	if !ok {
		return
	}
	h.removeMember(c, org, userID)
}

func (h *Handler) removeMember(c *gin.Context, org *models.Organization, userID uuid.UUID) {
	if userID == org.OwnerID {
		httpx.Error(c, http.StatusBadRequest, "The organization owner cannot be removed")
		return
	}
	ctx := c.Request.Context()
	if err := h.stores.Members.Remove(ctx, org.ID, userID); err != nil {
		httpx.StoreError(c, h.log, err, "Member not found")
		return
	}
	h.perms.Forget(ctx, org.ID, userID)
	h.usage.Invalidate(ctx, usage.ResourceMembers, org.ID)

	logger.FromContext(c, h.log).Info("member removed",
		zap.String("organization_id", org.ID.String()),
		zap.String("member_id", userID.String()))
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
