package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"surveyhub-backend/billing-service/payments"
	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store/storetest"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

const webhookSecret = "whsec_test"

type fakeGateway struct {
	checkouts []payments.CheckoutRequest
	portals   []string
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (string, error) {
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.stripe.test/session", nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	g.portals = append(g.portals, customerID)
	return "https://billing.stripe.test/portal", nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	emails []clients.SubscriptionEmailRequest
	pushes []clients.PushRequest
}

func (f *fakeNotifier) SendInvitationEmail(context.Context, clients.InvitationEmailRequest) error {
	return nil
}

func (f *fakeNotifier) SendSubscriptionEmail(_ context.Context, req clients.SubscriptionEmailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, req)
	return nil
}

func (f *fakeNotifier) Push(_ context.Context, req clients.PushRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, req)
	return nil
}

type testEnv struct {
	db       *storetest.DB
	router   *gin.Engine
	sessions *auth.SessionManager
	gateway  *fakeGateway
	notifier *fakeNotifier
	roles    map[string]models.Role
	user     models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.New()
	roles := map[string]models.Role{}
	for slug, keys := range permission.DefaultRoleMatrix() {
		roles[slug] = db.SeedRole(slug, keys...)
	}

	sessions, err := auth.NewSessionManager(strings.Repeat("s", 32), time.Hour)
	require.NoError(t, err)
	authn := auth.NewAuthenticator(auth.NewHMACProvider(sessions), db.Users(), nil, "surveyhub_session", nil)

	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}
	h := New(
		db.Stores(),
		usage.NewChecker(db.Stores(), usage.DefaultCatalog(), nil, nil),
		gateway,
		notifier,
		Options{WebhookSecret: webhookSecret, FrontendURL: "http://app.test"},
		nil,
	)
	router := gin.New()
	h.Register(router, authn)

	return &testEnv{
		db:       db,
		router:   router,
		sessions: sessions,
		gateway:  gateway,
		notifier: notifier,
		roles:    roles,
		user:     db.AddUser(models.User{Email: "payer@example.com", FirstName: "Pat"}),
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, _, err := e.sessions.Issue(user, nil, 0)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// sendEvent posts a Stripe event signed the way Stripe signs deliveries.
func (e *testEnv) sendEvent(t *testing.T, eventType string, object interface{}, secret string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(object)
	require.NoError(t, err)
	payload := []byte(fmt.Sprintf(`{"id":"evt_%d","object":"event","type":%q,"api_version":%q,"data":{"object":%s}}`,
		time.Now().UnixNano(), eventType, "2025-03-31.basil", data))

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) subscription(t *testing.T) models.Subscription {
	t.Helper()
	sub, err := e.db.Subscriptions().GetByUserID(context.Background(), e.user.ID)
	require.NoError(t, err)
	return *sub
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
