package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/utils/query"
)

// UserListResponse represents a page of users
type UserListResponse struct {
	Items      []models.User            `json:"items"`
	Pagination query.Page `json:"pagination"`
}

// AdminOrganization is an organization row in the admin dashboard
type AdminOrganization struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Slug    string    `json:"slug"`
	OwnerID uuid.UUID `json:"owner_id"`
	Members int64     `json:"members"`
	Surveys int64     `json:"surveys"`
}

type OrganizationListResponse struct {
	Items      []AdminOrganization      `json:"items"`
	Pagination query.Page `json:"pagination"`
}

// StatsResponse is the platform overview on the admin dashboard
type StatsResponse struct {
	Users                int64          `json:"users"`
	Organizations        int64          `json:"organizations"`
	Surveys              int64          `json:"surveys"`
	ActiveImpersonations int            `json:"active_impersonations"`
	Cache                map[string]int `json:"cache,omitempty"`
}

// AdminListUsers lists every user with pagination and search
// @Summary List users
// @Tags admin
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 20, max: 100)"
// @Param search query string false "Search across email and names"
// @Param filters[is_super_admin] query string false "Filter by super admin flag"
// @Param sort[field] query string false "Sort field (email, created_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security CookieAuth
// @Success 200 {object} handlers.UserListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Super admin access required"
// @Router /admin/users [get]
func (h *Handler) AdminListUsers(c *gin.Context) {
	params := query.Parse(c)
	users, total, err := h.stores.Users.List(c.Request.Context(), params)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch users", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, UserListResponse{
		Items:      users,
		Pagination: params.Paginate(total),
	})
}

// AdminListOrganizations lists every organization with its member and survey counts
// @Summary List organizations
// @Tags admin
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 20, max: 100)"
// @Param search query string false "Search across name and slug"
// @Security CookieAuth
// @Success 200 {object} handlers.OrganizationListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Super admin access required"
// @Router /admin/organizations [get]
func (h *Handler) AdminListOrganizations(c *gin.Context) {
	ctx := c.Request.Context()
	params := query.Parse(c)
	orgs, total, err := h.stores.Organizations.List(ctx, params)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch organizations", err)
		return
	}

	items := make([]AdminOrganization, 0, len(orgs))
	for _, org := range orgs {
		members, err := h.stores.Members.Count(ctx, org.ID)
		if err != nil {
			httpx.Internal(c, h.log, "Failed to count members", err)
			return
		}
		surveys, err := h.usage.SurveyUsage(ctx, org.ID)
		if err != nil {
			httpx.Internal(c, h.log, "Failed to count surveys", err)
			return
		}
		items = append(items, AdminOrganization{
			ID:      org.ID,
			Name:    org.Name,
			Slug:    org.Slug,
			OwnerID: org.OwnerID,
			Members: members,
			Surveys: surveys,
		})
	}
	c.JSON(http.StatusOK, OrganizationListResponse{
		Items:      items,
		Pagination: params.Paginate(total),
	})
}

// AdminStats returns platform totals
// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {object} handlers.StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Super admin access required"
// @Router /admin/stats [get]
func (h *Handler) AdminStats(c *gin.Context) {
	ctx := c.Request.Context()
	var stats StatsResponse
	var err error

	if stats.Users, err = h.stores.Users.Count(ctx); err != nil {
		httpx.Internal(c, h.log, "Failed to count users", err)
		return
	}
	if stats.Organizations, err = h.stores.Organizations.Count(ctx); err != nil {
		httpx.Internal(c, h.log, "Failed to count organizations", err)
		return
	}
	if stats.Surveys, err = h.stores.Surveys.Count(ctx); err != nil {
		httpx.Internal(c, h.log, "Failed to count surveys", err)
		return
	}
	active, err := h.stores.Impersonations.ListActive(ctx, h.now())
	if err != nil {
		httpx.Internal(c, h.log, "Failed to list impersonations", err)
		return
	}
	stats.ActiveImpersonations = len(active)

	// Cache stats are informational; a missing Redis leaves them out.
	if cacheStats, err := h.cache.GetCacheStats(ctx); err == nil {
		stats.Cache = cacheStats
	}
	c.JSON(http.StatusOK, stats)
}
