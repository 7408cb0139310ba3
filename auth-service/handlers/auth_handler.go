package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/auth-service/identity"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/logger"
)

// MeResponse describes the signed-in user. Impersonator is set while a super
// admin acts as User.
type MeResponse struct {
	User          *models.User `json:"user"`
	Impersonating bool         `json:"impersonating"`
	Impersonator  *models.User `json:"impersonator,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
}

// Login redirects to the hosted login page
// @Summary Start login
// @Tags auth
// @Param return_to query string false "Frontend path to land on after login"
// @Success 307 "Redirect to the identity provider"
// @Failure 500 {object} map[string]string "Failed to initiate login"
// @Router /auth/login [get]
func (h *Handler) Login(c *gin.Context) {
	state, err := generateState()
	if err != nil {
		httpx.Internal(c, h.log, "Failed to initiate login", err)
		return
	}
	authURL, err := h.identity.AuthorizationURL(state)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to initiate login", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieMaxAge, "/", "", h.opts.SecureCookies, true)
	if returnTo := safeReturnTo(c.Query("return_to")); returnTo != "" {
		c.SetCookie(returnToCookieName, returnTo, stateCookieMaxAge, "/", "", h.opts.SecureCookies, true)
	}
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback completes the login and sets the session cookie
// @Summary Login callback
// @Tags auth
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by login"
// @Success 307 "Redirect to the dashboard, or to the login page with auth_error"
// @Router /auth/callback [get]
func (h *Handler) Callback(c *gin.Context) {
	log := logger.FromContext(c, h.log)

	if providerErr := c.Query("error"); providerErr != "" {
		log.Warn("login rejected by provider",
			zap.String("error", providerErr),
			zap.String("description", c.Query("error_description")))
		h.failLogin(c, providerErr)
		return
	}

	stored, err := c.Cookie(stateCookieName)
	state := c.Query("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(state)) != 1 {
		log.Warn("login state mismatch")
		h.failLogin(c, "invalid_state")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, "/", "", h.opts.SecureCookies, true)

	code := c.Query("code")
	if code == "" {
		h.failLogin(c, "no_code")
		return
	}

	ctx := c.Request.Context()
	id, err := h.identity.Authenticate(ctx, code)
	if err != nil {
		log.Warn("code exchange failed", zap.Error(err))
		if errors.Is(err, identity.ErrInvalidCode) {
			h.failLogin(c, "invalid_code")
			return
		}
		h.failLogin(c, "callback_failed")
		return
	}

	user, err := auth.Provision(ctx, h.users, id)
	if err != nil {
		if errors.Is(err, auth.ErrSubjectMismatch) {
			log.Warn("email linked to another account", zap.String("email", id.Email))
			h.failLogin(c, "account_conflict")
			return
		}
		log.Error("provisioning user failed", zap.Error(err))
		h.failLogin(c, "callback_failed")
		return
	}

	if h.isSuperAdminEmail(user.Email) && !user.IsSuperAdmin {
		user.IsSuperAdmin = true
		if err := h.users.Update(ctx, user); err != nil {
			log.Error("promoting super admin failed", zap.Error(err))
			h.failLogin(c, "callback_failed")
			return
		}
		log.Info("super admin promoted", zap.String("user_id", user.ID.String()))
	}

	token, _, err := h.sessions.Issue(user, nil, 0)
	if err != nil {
		log.Error("issuing session failed", zap.Error(err))
		h.failLogin(c, "callback_failed")
		return
	}
	auth.SetSessionCookie(c, h.opts.CookieName, token, h.sessions.TTL(), h.opts.SecureCookies)

	returnTo := defaultReturnTo
	if stored, err := c.Cookie(returnToCookieName); err == nil && safeReturnTo(stored) != "" {
		returnTo = stored
		c.SetCookie(returnToCookieName, "", -1, "/", "", h.opts.SecureCookies, true)
	}

	log.Info("user logged in", zap.String("user_id", user.ID.String()))
	c.Redirect(http.StatusTemporaryRedirect, h.opts.FrontendURL+returnTo)
}

// Logout revokes the current session and clears the cookie
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if id, ok := auth.CurrentIdentity(c); ok && id.SessionID != "" {
		if err := h.cache.RevokeSession(c.Request.Context(), id.SessionID, id.ExpiresAt); err != nil {
			logger.FromContext(c, h.log).Warn("session not revoked", zap.Error(err))
		}
	}
	auth.ClearSessionCookie(c, h.opts.CookieName, h.opts.SecureCookies)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the signed-in user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} handlers.MeResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	resp := MeResponse{User: user}
	if admin, ok := auth.Impersonator(c); ok {
		resp.Impersonating = true
		resp.Impersonator = admin
	}
	if id, ok := auth.CurrentIdentity(c); ok && !id.ExpiresAt.IsZero() {
		expires := id.ExpiresAt
		resp.ExpiresAt = &expires
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) failLogin(c *gin.Context, reason string) {
	c.Redirect(http.StatusTemporaryRedirect, h.opts.FrontendURL+"/login?auth_error="+url.QueryEscape(reason))
}

func (h *Handler) isSuperAdminEmail(email string) bool {
	return h.opts.SuperAdminEmail != "" && strings.EqualFold(email, h.opts.SuperAdminEmail)
}

// safeReturnTo accepts only same-site absolute paths.
func safeReturnTo(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return ""
	}
	return path
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
