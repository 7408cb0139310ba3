package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store/storetest"
	"surveyhub-backend/shared/utils/cache"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newSessions(t *testing.T) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(testSecret, time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewSessionManagerRejectsShortSecret(t *testing.T) {
	_, err := NewSessionManager("short", time.Hour)
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	m := newSessions(t)
	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	admin := uuid.New()

	token, claims, err := m.Issue(user, &admin, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	id, err := NewHMACProvider(m).ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, *id.UserID)
	assert.Equal(t, admin, *id.ImpersonatorID)
	assert.Equal(t, claims.ID, id.SessionID)
}

func TestSessionRejectsTamperedAndExpired(t *testing.T) {
	m := newSessions(t)
	user := &models.User{ID: uuid.New(), Email: "a@example.com"}

	token, _, err := m.Issue(user, nil, time.Minute)
	require.NoError(t, err)

	_, err = m.Parse(token + "x")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other, err := NewSessionManager("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

type authEnv struct {
	db     *storetest.DB
	router *gin.Engine
	mr     *miniredis.Miniredis
	cache  *cache.CacheManager
}

func newAuthEnv(t *testing.T, provider Provider) *authEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := storetest.New()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cm := cache.New(client, nil)

	a := NewAuthenticator(provider, db.Users(), cm, "surveyhub_session", nil)
	router := gin.New()
	router.GET("/me", a.RequireAuth(), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		_, impersonating := Impersonator(c)
		c.JSON(http.StatusOK, gin.H{"email": user.Email, "impersonating": impersonating})
	})
	router.GET("/admin", a.RequireAuth(), RequireSuperAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/optional", a.OptionalAuth(), func(c *gin.Context) {
		_, ok := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	return &authEnv{db: db, router: router, mr: mr, cache: cm}
}

func (e *authEnv) get(path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestRequireAuth(t *testing.T) {
	m := newSessions(t)
	env := newAuthEnv(t, NewHMACProvider(m))
	user := env.db.AddUser(models.User{Email: "member@example.com"})

	assert.Equal(t, http.StatusUnauthorized, env.get("/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.get("/me", bearer("garbage")).Code)

	token, claims, err := m.Issue(&user, nil, 0)
	require.NoError(t, err)

	w := env.get("/me", bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"member@example.com","impersonating":false}`, w.Body.String())

	w = env.get("/me", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "surveyhub_session", Value: token})
	})
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, env.cache.RevokeSession(context.Background(), claims.ID, claims.ExpiresAt.Time))
	assert.Equal(t, http.StatusUnauthorized, env.get("/me", bearer(token)).Code)
}

func TestRequireAuthUnknownUser(t *testing.T) {
	m := newSessions(t)
	env := newAuthEnv(t, NewHMACProvider(m))

	token, _, err := m.Issue(&models.User{ID: uuid.New(), Email: "ghost@example.com"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.get("/me", bearer(token)).Code)
}

func TestOptionalAuth(t *testing.T) {
	env := newAuthEnv(t, NewHMACProvider(newSessions(t)))
	w := env.get("/optional", bearer("nope"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
}

func TestRequireSuperAdmin(t *testing.T) {
	m := newSessions(t)
	env := newAuthEnv(t, NewHMACProvider(m))
	member := env.db.AddUser(models.User{Email: "member@example.com"})
	admin := env.db.AddUser(models.User{Email: "admin@example.com", IsSuperAdmin: true})

	memberToken, _, _ := m.Issue(&member, nil, 0)
	adminToken, _, _ := m.Issue(&admin, nil, 0)
	impersonation, _, _ := m.Issue(&member, &admin.ID, 0)
	forged, _, _ := m.Issue(&admin, &member.ID, 0)

	assert.Equal(t, http.StatusForbidden, env.get("/admin", bearer(memberToken)).Code)
	assert.Equal(t, http.StatusNoContent, env.get("/admin", bearer(adminToken)).Code)
	assert.Equal(t, http.StatusNoContent, env.get("/admin", bearer(impersonation)).Code)

	w := env.get("/me", bearer(impersonation))
	assert.JSONEq(t, `{"email":"member@example.com","impersonating":true}`, w.Body.String())

	// the impersonator claim must name a super admin
	assert.Equal(t, http.StatusUnauthorized, env.get("/me", bearer(forged)).Code)
}

func newTestJWKSProvider(t *testing.T) (*JWKSProvider, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := &JWKSProvider{
		issuer: "https://clerk.example.com",
		keyFunc: func(context.Context) jwt.Keyfunc {
			return func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil }
		},
	}
	return p, key
}

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWKSProviderProvisionsAndLinksUsers(t *testing.T) {
	p, key := newTestJWKSProvider(t)
	env := newAuthEnv(t, p)
	exp := time.Now().Add(time.Hour).Unix()

	fresh := signRS256(t, key, jwt.MapClaims{
		"iss": "https://clerk.example.com", "sub": "user_1", "email": "New@Example.com",
		"first_name": "Nia", "exp": exp,
	})
	w := env.get("/me", bearer(fresh))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"new@example.com","impersonating":false}`, w.Body.String())

	provisioned, err := env.db.Users().GetByExternalID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Nia", provisioned.FirstName)

	seeded := env.db.AddUser(models.User{Email: "admin@example.com", IsSuperAdmin: true})
	linking := signRS256(t, key, jwt.MapClaims{
		"iss": "https://clerk.example.com", "sub": "user_2", "email": "admin@example.com", "exp": exp,
	})
	assert.Equal(t, http.StatusNoContent, env.get("/admin", bearer(linking)).Code)

	linked, err := env.db.Users().GetByExternalID(context.Background(), "user_2")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, linked.ID)
}

func TestJWKSProviderRejects(t *testing.T) {
	p, key := newTestJWKSProvider(t)
	exp := time.Now().Add(time.Hour).Unix()

	wrongIssuer := signRS256(t, key, jwt.MapClaims{"iss": "https://evil.example.com", "sub": "u", "email": "e@x.io", "exp": exp})
	_, err := p.ValidateToken(context.Background(), wrongIssuer)
	assert.ErrorIs(t, err, ErrUnauthorized)

	noExpiry := signRS256(t, key, jwt.MapClaims{"iss": "https://clerk.example.com", "sub": "u", "email": "e@x.io"})
	_, err = p.ValidateToken(context.Background(), noExpiry)
	assert.ErrorIs(t, err, ErrUnauthorized)

	noEmail := signRS256(t, key, jwt.MapClaims{"iss": "https://clerk.example.com", "sub": "u", "exp": exp})
	_, err = p.ValidateToken(context.Background(), noEmail)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestProvision(t *testing.T) {
	db := storetest.New()
	ctx := context.Background()

	user, err := Provision(ctx, db.Users(), &Identity{Subject: "wos_1", Email: "Ana@Example.com", FirstName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)

	again, err := Provision(ctx, db.Users(), &Identity{Subject: "wos_1", Email: "ana@example.com", FirstName: "Anna"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Anna", again.FirstName)

	_, err = Provision(ctx, db.Users(), &Identity{Subject: "wos_2", Email: "ana@example.com"})
	assert.ErrorIs(t, err, ErrSubjectMismatch)

	_, err = Provision(ctx, db.Users(), &Identity{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
