package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveyhub-backend/auth-service/identity"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store/storetest"
	"surveyhub-backend/shared/utils/cache"
)

const (
	cookieName  = "surveyhub_session"
	frontendURL = "http://app.test"
)

type fakeIdentity struct {
	identities map[string]*auth.Identity
	states     []string
}

func (f *fakeIdentity) AuthorizationURL(state string) (string, error) {
	f.states = append(f.states, state)
	return "https://auth.example.com/authorize?state=" + url.QueryEscape(state), nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, code string) (*auth.Identity, error) {
	id, ok := f.identities[code]
	if !ok {
		return nil, errors.Join(identity.ErrInvalidCode, errors.New("unknown code"))
	}
	return id, nil
}

type testEnv struct {
	db       *storetest.DB
	router   *gin.Engine
	sessions *auth.SessionManager
	identity *fakeIdentity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.New()
	mr := miniredis.RunT(t)
	cm := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())

	sessions, err := auth.NewSessionManager(strings.Repeat("s", 32), time.Hour)
	require.NoError(t, err)
	authn := auth.NewAuthenticator(auth.NewHMACProvider(sessions), db.Users(), cm, cookieName, nil)

	provider := &fakeIdentity{identities: map[string]*auth.Identity{
		"code-ana":   {Subject: "user_ana", Email: "Ana@Example.com", FirstName: "Ana"},
		"code-admin": {Subject: "user_root", Email: "root@surveyhub.app"},
	}}
	h := New(db.Users(), provider, sessions, cm, Options{
		FrontendURL:     frontendURL,
		CookieName:      cookieName,
		SuperAdminEmail: "root@surveyhub.app",
	}, nil)

	router := gin.New()
	h.Register(router, authn)
	return &testEnv{db: db, router: router, sessions: sessions, identity: provider}
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login runs the redirect leg and returns the state cookie.
func (e *testEnv) login(t *testing.T, returnTo string) *http.Cookie {
	t.Helper()
	path := "/api/auth/login"
	if returnTo != "" {
		path += "?return_to=" + url.QueryEscape(returnTo)
	}
	w := e.serve(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	state := cookie(w, stateCookieName)
	require.NotNil(t, state)
	return state
}

func (e *testEnv) callback(code, state string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code="+code+"&state="+url.QueryEscape(state), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.serve(req)
}

func TestLoginRedirectsWithState(t *testing.T) {
	env := newTestEnv(t)
	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/auth/login?return_to=/surveys", nil))

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	state := cookie(w, stateCookieName)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	require.Len(t, env.identity.states, 1)
	assert.Equal(t, env.identity.states[0], state.Value)
	assert.Contains(t, w.Header().Get("Location"), url.QueryEscape(state.Value))
	assert.Equal(t, url.QueryEscape("/surveys"), cookie(w, returnToCookieName).Value)
}

func TestLoginIgnoresOffsiteReturnTo(t *testing.T) {
	env := newTestEnv(t)
	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/auth/login?return_to=//evil.example.com", nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Nil(t, cookie(w, returnToCookieName))
}

func TestCallbackProvisionsUserAndSetsSession(t *testing.T) {
	env := newTestEnv(t)
	state := env.login(t, "")

	w := env.callback("code-ana", state.Value, state)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, frontendURL+"/dashboard", w.Header().Get("Location"))

	session := cookie(w, cookieName)
	require.NotNil(t, session)
	user, err := env.db.Users().GetByExternalID(context.Background(), "user_ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.False(t, user.IsSuperAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(session)
	me := env.serve(req)
	require.Equal(t, http.StatusOK, me.Code)
	var resp MeResponse
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.User.ID)
	assert.False(t, resp.Impersonating)
	assert.NotNil(t, resp.ExpiresAt)
}

func TestCallbackHonoursReturnTo(t *testing.T) {
	env := newTestEnv(t)
	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/auth/login?return_to=/invitations/abc", nil))
	state, returnTo := cookie(w, stateCookieName), cookie(w, returnToCookieName)

	cb := env.callback("code-ana", state.Value, state, returnTo)
	assert.Equal(t, frontendURL+"/invitations/abc", cb.Header().Get("Location"))
}

func TestCallbackPromotesSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	state := env.login(t, "")
	require.Equal(t, http.StatusTemporaryRedirect, env.callback("code-admin", state.Value, state).Code)

	admin, err := env.db.Users().GetByEmail(context.Background(), "root@surveyhub.app")
	require.NoError(t, err)
	assert.True(t, admin.IsSuperAdmin)
}

func TestCallbackLinksSeededUser(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.db.AddUser(models.User{Email: "ana@example.com", FirstName: "Seeded"})
	state := env.login(t, "")

	require.NotNil(t, cookie(env.callback("code-ana", state.Value, state), cookieName))
	linked, err := env.db.Users().GetByExternalID(context.Background(), "user_ana")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, linked.ID)
	assert.Equal(t, "Seeded", linked.FirstName)
}

func TestCallbackFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		req    func() *httptest.ResponseRecorder
		reason string
	}{
		{"provider error", func() *httptest.ResponseRecorder {
			return env.serve(httptest.NewRequest(http.MethodGet, "/api/auth/callback?error=access_denied", nil))
		}, "access_denied"},
		{"missing state cookie", func() *httptest.ResponseRecorder {
			return env.callback("code-ana", "forged")
		}, "invalid_state"},
		{"state mismatch", func() *httptest.ResponseRecorder {
			state := env.login(t, "")
			return env.callback("code-ana", "forged", state)
		}, "invalid_state"},
		{"unknown code", func() *httptest.ResponseRecorder {
			state := env.login(t, "")
			return env.callback("bogus", state.Value, state)
		}, "invalid_code"},
		{"missing code", func() *httptest.ResponseRecorder {
			state := env.login(t, "")
			return env.callback("", state.Value, state)
		}, "no_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.req()
			require.Equal(t, http.StatusTemporaryRedirect, w.Code)
			assert.Equal(t, frontendURL+"/login?auth_error="+tt.reason, w.Header().Get("Location"))
			assert.Nil(t, cookie(w, cookieName))
		})
	}
}

func TestCallbackRejectsEmailOwnedByAnotherSubject(t *testing.T) {
	env := newTestEnv(t)
	other := "user_other"
	env.db.AddUser(models.User{Email: "ana@example.com", ExternalID: &other})
	state := env.login(t, "")

	w := env.callback("code-ana", state.Value, state)
	assert.Equal(t, frontendURL+"/login?auth_error=account_conflict", w.Header().Get("Location"))
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.db.AddUser(models.User{Email: "ana@example.com"})
	token, _, err := env.sessions.Issue(&user, nil, 0)
	require.NoError(t, err)

	me := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return env.serve(req).Code
	}
	require.Equal(t, http.StatusOK, me())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := env.serve(req)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := cookie(w, cookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	assert.Equal(t, http.StatusUnauthorized, me())
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.serve(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeReportsImpersonator(t *testing.T) {
	env := newTestEnv(t)
	admin := env.db.AddUser(models.User{Email: "admin@example.com", IsSuperAdmin: true})
	target := env.db.AddUser(models.User{Email: "ana@example.com"})
	token, _, err := env.sessions.Issue(&target, &admin.ID, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := env.serve(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, target.ID, resp.User.ID)
	assert.True(t, resp.Impersonating)
	require.NotNil(t, resp.Impersonator)
	assert.Equal(t, admin.ID, resp.Impersonator.ID)
}

func TestMeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
