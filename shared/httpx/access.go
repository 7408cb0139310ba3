package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

// OrgAccess loads the organization and the caller's permission set. Unknown
// organizations answer 404; non-members and members lacking resource:action
// answer 403. An empty resource only checks membership.
func OrgAccess(
	c *gin.Context,
	log *zap.Logger,
	orgs store.OrganizationStore,
	perms *permission.Checker,
	orgID, userID uuid.UUID,
	resource, action string,
) (*models.Organization, *permission.Set, bool) {
	ctx := c.Request.Context()
	org, err := orgs.GetByID(ctx, orgID)
	if err != nil {
		StoreError(c, log, err, "Organization not found")
		return nil, nil, false
	}

	set, err := perms.Resolve(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, permission.ErrNotMember) {
			Error(c, http.StatusForbidden, "You are not a member of this organization")
			return nil, nil, false
		}
		Internal(c, log, "Failed to resolve permissions", err)
		return nil, nil, false
	}

	if resource != "" && !set.Has(resource, action) {
		Error(c, http.StatusForbidden, "Insufficient permissions")
		return nil, nil, false
	}
	return org, set, true
}

// LimitReached answers 403 with the usage that triggered the denial.
func LimitReached(c *gin.Context, d usage.Decision) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": d.Reason,
		"code":  "limit_reached",
		"usage": d.Usage,
	})
}
