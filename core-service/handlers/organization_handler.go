package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

// OrganizationResponse represents organization data for API responses
type OrganizationResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Role      string    `json:"role,omitempty"`
	IsOwner   bool      `json:"is_owner"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// CreateOrganizationRequest represents request body for creating organization
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,max=200"`
	Slug string `json:"slug" binding:"omitempty,max=100"`
}

// UpdateOrganizationRequest represents request body for updating organization
type UpdateOrganizationRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=200"`
	Slug *string `json:"slug" binding:"omitempty,min=1,max=100"`
}

// PermissionsResponse is the caller's role and capability flags in one organization
type PermissionsResponse struct {
	OrganizationID uuid.UUID        `json:"organization_id"`
	Role           string           `json:"role"`
	Permissions    permission.Flags `json:"permissions"`
	Keys           []string         `json:"keys"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > 90 {
		slug = strings.TrimRight(slug[:90], "-")
	}
	if slug == "" {
		slug = "org"
	}
	return slug
}

func toOrganizationResponse(org models.Organization, role string, userID uuid.UUID) OrganizationResponse {
	return OrganizationResponse{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		OwnerID:   org.OwnerID,
		Role:      role,
		IsOwner:   org.OwnerID == userID,
		CreatedAt: org.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: org.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ListOrganizations lists the organizations the caller belongs to
// @Summary List my organizations
// @Tags organizations
// @Produce json
// @Security CookieAuth
// @Success 200 {object} map[string][]handlers.OrganizationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /organizations [get]
func (h *Handler) ListOrganizations(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.MustUserID(c)

	orgs, err := h.stores.Organizations.ListForUser(ctx, userID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch organizations", err)
		return
	}

	items := make([]OrganizationResponse, 0, len(orgs))
	for _, org := range orgs {
		role := ""
		if member, err := h.stores.Members.Get(ctx, org.ID, userID); err == nil {
			role = member.Role.Slug
		}
		items = append(items, toOrganizationResponse(org, role, userID))
	}
	c.JSON(http.StatusOK, gin.H{"organizations": items})
}

// CreateOrganization creates an organization owned by the caller
// @Summary Create organization
// @Description Creates an organization if the caller's plan allows another one
// @Tags organizations
// @Accept json
// @Produce json
// @Param organization body handlers.CreateOrganizationRequest true "Organization data"
// @Security CookieAuth
// @Success 201 {object} handlers.OrganizationResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]interface{} "Plan limit reached"
// @Failure 409 {object} map[string]string "Slug already taken"
// @Router /organizations [post]
func (h *Handler) CreateOrganization(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.MustUserID(c)

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		httpx.Error(c, http.StatusBadRequest, "Organization name is required")
		return
	}

	decision, err := h.usage.CheckOrganizationLimit(ctx, userID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to check organization limit", err)
		return
	}
	if !decision.Allowed {
		httpx.LimitReached(c, decision)
		return
	}

	slug := Slugify(req.Slug)
	if req.Slug == "" {
		slug = h.uniqueSlug(c, Slugify(name))
	}

	ownerRole, err := h.stores.Roles.GetBySlug(ctx, models.RoleOwner)
	if err != nil {
		httpx.Internal(c, h.log, "Owner role is not seeded", err)
		return
	}

	org := models.Organization{Name: name, Slug: slug, OwnerID: userID}
	if err := h.stores.Organizations.Create(ctx, &org, ownerRole.ID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			httpx.Error(c, http.StatusConflict, "Organization slug already taken")
			return
		}
		httpx.Internal(c, h.log, "Failed to create organization", err)
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceOrganizations, userID)
	h.usage.Invalidate(ctx, usage.ResourceMembers, org.ID)

	logger.FromContext(c, h.log).Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("user_id", userID.String()))
	c.JSON(http.StatusCreated, toOrganizationResponse(org, models.RoleOwner, userID))
}

// uniqueSlug appends a short suffix when base is already taken, including by
// soft-deleted organizations.
func (h *Handler) uniqueSlug(c *gin.Context, base string) string {
	if _, err := h.stores.Organizations.GetBySlug(c.Request.Context(), base); errors.Is(err, store.ErrNotFound) {
		return base
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// GetOrganization returns one organization the caller belongs to
// @Summary Get organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security CookieAuth
// @Success 200 {object} handlers.OrganizationResponse
// @Failure 403 {object} map[string]string "Not a member"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id} [get]
func (h *Handler) GetOrganization(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	userID := auth.MustUserID(c)
	org, set, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, userID, permission.ResourceOrganizations, permission.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toOrganizationResponse(*org, set.Role, userID))
}

// UpdateOrganization renames an organization or changes its slug
// @Summary Update organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path string true "Organization ID"
// @Param organization body handlers.UpdateOrganizationRequest true "Fields to change"
// @Security CookieAuth
// @Success 200 {object} handlers.OrganizationResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Failure 409 {object} map[string]string "Slug already taken"
// @Router /organizations/{id} [put]
func (h *Handler) UpdateOrganization(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	userID := auth.MustUserID(c)

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	org, set, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, userID, permission.ResourceOrganizations, permission.ActionUpdate)
	if !ok {
		return
	}

	if req.Name != nil {
		org.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		org.Slug = Slugify(*req.Slug)
	}
	if org.Name == "" {
		httpx.Error(c, http.StatusBadRequest, "Organization name is required")
		return
	}

	if err := h.stores.Organizations.Update(c.Request.Context(), org); err != nil {
		if errors.Is(err, store.ErrConflict) {
			httpx.Error(c, http.StatusConflict, "Organization slug already taken")
			return
		}
		httpx.Internal(c, h.log, "Failed to update organization", err)
		return
	}
	c.JSON(http.StatusOK, toOrganizationResponse(*org, set.Role, userID))
}

// DeleteOrganization soft deletes an organization
// @Summary Delete organization
// @Tags organizations
// @Param id path string true "Organization ID"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id} [delete]
func (h *Handler) DeleteOrganization(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := auth.MustUserID(c)

	org, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, userID, permission.ResourceOrganizations, permission.ActionDelete)
	if !ok {
		return
	}

	if err := h.stores.Organizations.Delete(ctx, org.ID); err != nil {
		httpx.StoreError(c, h.log, err, "Organization not found")
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceOrganizations, org.OwnerID)
	_ = h.cache.InvalidateOrgPermissions(ctx, org.ID)

	logger.FromContext(c, h.log).Info("organization deleted",
		zap.String("organization_id", org.ID.String()),
		zap.String("user_id", userID.String()))
	c.JSON(http.StatusOK, gin.H{"message": "Organization deleted successfully"})
}

// GetOrganizationPermissions returns the caller's role and permission flags
// @Summary Get my permissions in an organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security CookieAuth
// @Success 200 {object} handlers.PermissionsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not a member"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id}/permissions [get]
func (h *Handler) GetOrganizationPermissions(c *gin.Context) {
	orgID, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}
	_, set, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, auth.MustUserID(c), "", "")
	if !ok {
		return
	}
	keys := set.Permissions
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, PermissionsResponse{
		OrganizationID: orgID,
		Role:           set.Role,
		Permissions:    set.Flags(),
		Keys:           keys,
	})
}
