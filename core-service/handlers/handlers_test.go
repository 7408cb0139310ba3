package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/store/storetest"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/cache"
	"surveyhub-backend/shared/utils/permission"
)

const cookieName = "surveyhub_session"

type fakeNotifier struct {
	mu          sync.Mutex
	invitations []clients.InvitationEmailRequest
}

func (f *fakeNotifier) SendInvitationEmail(_ context.Context, req clients.InvitationEmailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invitations = append(f.invitations, req)
	return nil
}

func (f *fakeNotifier) SendSubscriptionEmail(context.Context, clients.SubscriptionEmailRequest) error {
	return nil
}

func (f *fakeNotifier) Push(context.Context, clients.PushRequest) error { return nil }

type testEnv struct {
	db       *storetest.DB
	router   *gin.Engine
	sessions *auth.SessionManager
	notifier *fakeNotifier
	cache    *cache.CacheManager
	roles    map[string]models.Role
	owner    models.User
	org      models.Organization
	now      time.Time
}

func newTestEnv(t *testing.T, withCache bool) *testEnv {
	t.Helper()
	return newTestEnvWithStores(t, withCache, nil)
}

// newTestEnvWithStores lets a test swap individual stores before the handler is built.
func newTestEnvWithStores(t *testing.T, withCache bool, wrap func(*store.Stores)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.New()
	roles := map[string]models.Role{}
	for slug, keys := range permission.DefaultRoleMatrix() {
		roles[slug] = db.SeedRole(slug, keys...)
	}

	var cm *cache.CacheManager
	if withCache {
		mr := miniredis.RunT(t)
		cm = cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
	}

	sessions, err := auth.NewSessionManager(strings.Repeat("s", 32), time.Hour)
	require.NoError(t, err)
	authn := auth.NewAuthenticator(auth.NewHMACProvider(sessions), db.Users(), cm, cookieName, nil).
		WithImpersonations(db.Impersonations())

	now := time.Now().UTC().Truncate(time.Second)
	clock := func() time.Time { return now }

	stores := db.Stores()
	if wrap != nil {
		wrap(stores)
	}
	notifier := &fakeNotifier{}
	h := New(
		stores,
		usage.NewChecker(stores, usage.DefaultCatalog(), nil, nil).WithClock(clock),
		permission.NewChecker(db.Members(), db.Roles(), nil),
		notifier,
		sessions,
		cm,
		Options{FrontendURL: "http://app.test", CookieName: cookieName},
		nil,
	).WithClock(clock)

	router := gin.New()
	h.Register(router, authn)

	owner := db.AddUser(models.User{Email: "owner@example.com", FirstName: "Olive"})
	org := models.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
	require.NoError(t, db.Organizations().Create(context.Background(), &org, roles[models.RoleOwner].ID))

	return &testEnv{
		db:       db,
		router:   router,
		sessions: sessions,
		notifier: notifier,
		cache:    cm,
		roles:    roles,
		owner:    owner,
		org:      org,
		now:      now,
	}
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	token, _, err := e.sessions.Issue(&user, nil, 0)
	require.NoError(t, err)
	return token
}

func (e *testEnv) requestWithToken(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	token := ""
	if user != nil {
		token = e.token(t, *user)
	}
	return e.requestWithToken(t, method, path, body, token)
}

func (e *testEnv) addMember(t *testing.T, email, role string) models.User {
	t.Helper()
	user := e.db.AddUser(models.User{Email: email})
	require.NoError(t, e.db.Members().Add(context.Background(), &models.OrganizationMember{
		OrganizationID: e.org.ID,
		UserID:         user.ID,
		RoleID:         e.roles[role].ID,
		JoinedAt:       e.now,
	}))
	return user
}

func (e *testEnv) subscribe(t *testing.T, user models.User, plan string) {
	t.Helper()
	require.NoError(t, e.db.Subscriptions().Upsert(context.Background(), &models.Subscription{
		UserID: user.ID, Plan: plan, Status: models.SubscriptionActive,
	}))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
