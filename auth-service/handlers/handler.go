// Package handlers runs the hosted login flow and manages session cookies.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/auth-service/identity"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/utils/cache"
)

const (
	stateCookieName    = "surveyhub_oauth_state"
	returnToCookieName = "surveyhub_return_to"
	stateCookieMaxAge  = 600
	defaultReturnTo    = "/dashboard"
)

type Options struct {
	FrontendURL     string
	CookieName      string
	SecureCookies   bool
	SuperAdminEmail string
}

type Handler struct {
	users    store.UserStore
	identity identity.Provider
	sessions *auth.SessionManager
	cache    *cache.CacheManager
	opts     Options
	log      *zap.Logger
}

func New(users store.UserStore, provider identity.Provider, sessions *auth.SessionManager, cm *cache.CacheManager, opts Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		users:    users,
		identity: provider,
		sessions: sessions,
		cache:    cm,
		opts:     opts,
		log:      log.Named("auth"),
	}
}

// Register mounts the auth routes. limit guards the login entry points.
func (h *Handler) Register(router gin.IRouter, authn *auth.Authenticator, limit ...gin.HandlerFunc) {
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, limit...), handler)
	}
	group := router.Group("/api/auth")
	group.GET("/login", limited(h.Login)...)
	group.GET("/callback", limited(h.Callback)...)
	group.POST("/logout", authn.OptionalAuth(), h.Logout)
	group.GET("/me", authn.RequireAuth(), h.Me)
}
