// Package handlers serves organizations, memberships, invitations, usage
// and the super admin dashboard.
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/invitation"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/cache"
	"surveyhub-backend/shared/utils/permission"
)

// Options carries the settings the handlers read per request.
type Options struct {
	FrontendURL      string
	InvitationTTL    time.Duration
	ImpersonationTTL time.Duration
	CookieName       string
	SecureCookies    bool
}

type Handler struct {
	stores   *store.Stores
	usage    *usage.Checker
	perms    *permission.Checker
	notifier clients.Notifier
	sessions *auth.SessionManager
	cache    *cache.CacheManager
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

func New(
	stores *store.Stores,
	usageChecker *usage.Checker,
	perms *permission.Checker,
	notifier clients.Notifier,
	sessions *auth.SessionManager,
	cm *cache.CacheManager,
	opts Options,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.InvitationTTL <= 0 {
		opts.InvitationTTL = invitation.DefaultTTL
	}
	if opts.ImpersonationTTL <= 0 {
		opts.ImpersonationTTL = time.Hour
	}
	return &Handler{
		stores:   stores,
		usage:    usageChecker,
		perms:    perms,
		notifier: notifier,
		sessions: sessions,
		cache:    cm,
		opts:     opts,
		log:      log.Named("core"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used for expiry decisions.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Register mounts every core route on router.
func (h *Handler) Register(router gin.IRouter, authn *auth.Authenticator) {
	router.GET("/api/invitations/:token", h.PreviewInvitation)

	api := router.Group("/api", authn.RequireAuth())

	api.GET("/roles", h.ListRoles)

	orgs := api.Group("/organizations")
	orgs.GET("", h.ListOrganizations)
	orgs.POST("", h.CreateOrganization)
	orgs.GET("/:id", h.GetOrganization)
	orgs.PUT("/:id", h.UpdateOrganization)
	orgs.DELETE("/:id", h.DeleteOrganization)
	orgs.GET("/:id/permissions", h.GetOrganizationPermissions)
	orgs.GET("/:id/members", h.ListMembers)
	orgs.PUT("/:id/members/:userId", h.UpdateMemberRole)
	orgs.DELETE("/:id/members/:userId", h.RemoveMember)
	orgs.POST("/:id/leave", h.LeaveOrganization)
	orgs.GET("/:id/invitations", h.ListInvitations)
	orgs.POST("/:id/invitations", h.CreateInvitation)
	orgs.DELETE("/:id/invitations/:invitationId", h.RevokeInvitation)

	invitations := api.Group("/invitations")
	invitations.POST("/:token/accept", h.AcceptInvitation)
	invitations.POST("/:token/decline", h.DeclineInvitation)

	api.GET("/usage", h.GetUsageSummary)
	api.GET("/usage/:resource", h.GetUsage)

	admin := api.Group("/admin", auth.RequireSuperAdmin())
	admin.GET("/users", h.AdminListUsers)
	admin.GET("/organizations", h.AdminListOrganizations)
	admin.GET("/stats", h.AdminStats)
	admin.GET("/impersonation", h.ListImpersonations)
	admin.POST("/impersonation", h.StartImpersonation)
	admin.DELETE("/impersonation", h.StopImpersonation)
}
