package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"surveyhub-backend/shared/httpx"
)

// RoleResponse represents role data for API responses
type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
}

// ListRoles lists the roles members can hold, with their permission keys
// @Summary List roles
// @Tags roles
// @Produce json
// @Security CookieAuth
// @Success 200 {object} map[string][]handlers.RoleResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /roles [get]
func (h *Handler) ListRoles(c *gin.Context) {
	ctx := c.Request.Context()
	roles, err := h.stores.Roles.List(ctx)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch roles", err)
		return
	}

	items := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		keys, err := h.stores.Roles.PermissionKeys(ctx, role.ID)
		if err != nil {
			httpx.Internal(c, h.log, "Failed to fetch role permissions", err)
			return
		}
		if keys == nil {
			keys = []string{}
		}
		items = append(items, RoleResponse{
			ID:          role.ID,
			Slug:        role.Slug,
			Name:        role.Name,
			Description: role.Description,
			Permissions: keys,
		})
	}
	c.JSON(http.StatusOK, gin.H{"roles": items})
}
