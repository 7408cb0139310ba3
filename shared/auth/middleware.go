package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/utils/cache"
)

const (
	userKey         = "auth_user"
	identityKey     = "auth_identity"
	impersonatorKey = "auth_impersonator"
)

// Authenticator turns bearer tokens into local users.
type Authenticator struct {
	provider   Provider
	users      store.UserStore
	cache      *cache.CacheManager
	cookieName string
	log        *zap.Logger

	impersonations store.ImpersonationStore
}

func NewAuthenticator(provider Provider, users store.UserStore, cm *cache.CacheManager, cookieName string, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{
		provider:   provider,
		users:      users,
		cache:      cm,
		cookieName: cookieName,
		log:        log.Named("auth"),
	}
}

// WithImpersonations accepts an impersonated session only while the admin
// still has an open impersonation of that user.
func (a *Authenticator) WithImpersonations(sessions store.ImpersonationStore) *Authenticator {
	a.impersonations = sessions
	return a
}

// RequireAuth rejects requests without a valid session with 401.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.authenticate(c); err != nil {
			if !errors.Is(err, ErrUnauthorized) {
				a.log.Error("resolving session user failed", zap.Error(err))
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid session is present.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = a.authenticate(c)
		c.Next()
	}
}

// RequireSuperAdmin must run after RequireAuth. An admin impersonating
// another user keeps admin access.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if admin, ok := ActingAdmin(c); ok && admin.IsSuperAdmin {
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Super admin access required"})
		c.Abort()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) error {
	token := a.extractToken(c)
	if token == "" {
		return ErrUnauthorized
	}

	id, err := a.provider.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return ErrUnauthorized
	}
	if a.cache.IsSessionRevoked(c.Request.Context(), id.SessionID) {
		return ErrUnauthorized
	}

	user, err := a.resolveUser(c, id)
	if err != nil {
		return err
	}

	if id.ImpersonatorID != nil {
		admin, err := a.users.GetByID(c.Request.Context(), *id.ImpersonatorID)
		if err != nil || !admin.IsSuperAdmin {
			return ErrUnauthorized
		}
		if err := a.checkImpersonation(c.Request.Context(), admin.ID, user.ID); err != nil {
			return err
		}
		c.Set(impersonatorKey, admin)
	}

	c.Set(userKey, user)
	c.Set(identityKey, id)
	return nil
}

func (a *Authenticator) checkImpersonation(ctx context.Context, adminID, targetID uuid.UUID) error {
	if a.impersonations == nil {
		return nil
	}
	session, err := a.impersonations.GetActiveByAdmin(ctx, adminID, time.Now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("loading impersonation: %w", err)
	}
	if session.TargetUserID != targetID {
		return ErrUnauthorized
	}
	return nil
}

// resolveUser loads our sessions by id and provider tokens by subject.
func (a *Authenticator) resolveUser(c *gin.Context, id *Identity) (*models.User, error) {
	ctx := c.Request.Context()
	if id.UserID != nil {
		user, err := a.users.GetByID(ctx, *id.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return user, err
	}

	user, err := Provision(ctx, a.users, id)
	if errors.Is(err, ErrSubjectMismatch) {
		return nil, ErrUnauthorized
	}
	return user, err
}

func (a *Authenticator) extractToken(c *gin.Context) string {
	if a.cookieName != "" {
		if cookie, err := c.Cookie(a.cookieName); err == nil && cookie != "" {
			return cookie
		}
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// CurrentUser returns the effective user of the request.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// CurrentIdentity returns the validated token identity.
func CurrentIdentity(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}

// Impersonator returns the admin behind an impersonated session.
func Impersonator(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(impersonatorKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*models.User)
	return admin, ok
}

// ActingAdmin is the impersonating admin if any, else the current user.
func ActingAdmin(c *gin.Context) (*models.User, bool) {
	if admin, ok := Impersonator(c); ok {
		return admin, true
	}
	return CurrentUser(c)
}

// MustUserID is for handlers behind RequireAuth.
func MustUserID(c *gin.Context) uuid.UUID {
	user, ok := CurrentUser(c)
	if !ok {
		panic("auth: MustUserID called without RequireAuth")
	}
	return user.ID
}

// SetUserForTest installs a user as if RequireAuth had run.
func SetUserForTest(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set(identityKey, &Identity{UserID: &user.ID, Email: user.Email})
}
