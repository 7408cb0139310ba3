package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

// UsageSummary is the caller's plan with per-resource consumption.
type UsageSummary struct {
	Tier          usage.Tier   `json:"tier"`
	Organizations usage.Usage  `json:"organizations"`
	Members       *usage.Usage `json:"members,omitempty"`
	Surveys       *usage.Usage `json:"surveys,omitempty"`
}

// GetUsage reports consumption of one resource against the plan limit
// @Summary Get resource usage
// @Description organizations is scoped to the caller; members and surveys need organizationId
// @Tags usage
// @Produce json
// @Param resource path string true "members, organizations or surveys"
// @Param organizationId query string false "Organization ID"
// @Security CookieAuth
// @Success 200 {object} usage.Usage
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not a member"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /usage/{resource} [get]
func (h *Handler) GetUsage(c *gin.Context) {
	resource, err := usage.ParseResource(c.Param("resource"))
	if err != nil {
		httpx.Error(c, http.StatusBadRequest, "Unknown usage resource")
		return
	}
	userID := auth.MustUserID(c)

	var orgID *uuid.UUID
	if resource != usage.ResourceOrganizations {
		id, ok := httpx.UUIDQuery(c, "organizationId")
		if !ok {
			return
		}
		if _, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, id, userID, permission.ResourceOrganizations, permission.ActionRead); !ok {
			return
		}
		orgID = &id
	}

	u, err := h.usage.UsageFor(c.Request.Context(), resource, userID, orgID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to compute usage", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GetUsageSummary reports every resource at once
// @Summary Get usage summary
// @Tags usage
// @Produce json
// @Param organizationId query string false "Organization ID for member and survey usage"
// @Security CookieAuth
// @Success 200 {object} handlers.UsageSummary
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /usage [get]
func (h *Handler) GetUsageSummary(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.MustUserID(c)

	tier, _, err := h.usage.EffectiveTier(ctx, userID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to resolve plan", err)
		return
	}
	orgs, err := h.usage.UsageFor(ctx, usage.ResourceOrganizations, userID, nil)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to compute usage", err)
		return
	}
	summary := UsageSummary{Tier: tier, Organizations: orgs}

	if c.Query("organizationId") != "" {
		orgID, ok := httpx.UUIDQuery(c, "organizationId")
		if !ok {
			return
		}
		if _, _, ok := httpx.OrgAccess(c, h.log, h.stores.Organizations, h.perms, orgID, userID, permission.ResourceOrganizations, permission.ActionRead); !ok {
			return
		}
		members, err := h.usage.UsageFor(ctx, usage.ResourceMembers, userID, &orgID)
		if err != nil {
			httpx.Internal(c, h.log, "Failed to compute usage", err)
			return
		}
		surveys, err := h.usage.UsageFor(ctx, usage.ResourceSurveys, userID, &orgID)
		if err != nil {
			httpx.Internal(c, h.log, "Failed to compute usage", err)
			return
		}
		summary.Members, summary.Surveys = &members, &surveys
	}
	c.JSON(http.StatusOK, summary)
}
