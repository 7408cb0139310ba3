package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/ids"
	"surveyhub-backend/shared/store/storetest"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

type testEnv struct {
	db       *storetest.DB
	router   *gin.Engine
	sessions *auth.SessionManager
	roles    map[string]models.Role
	owner    models.User
	org      models.Organization
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
	gen, err := ids.NewGenerator(1)
	require.NoError(t, err)

	h := New(db.Stores(), usage.NewChecker(db.Stores(), usage.DefaultCatalog(), nil, nil), permission.NewChecker(db.Members(), db.Roles(), nil), gen, nil)
	router := gin.New()
	h.Register(router, auth.NewAuthenticator(auth.NewHMACProvider(sessions), db.Users(), nil, "surveyhub_session", nil))

	owner := db.AddUser(models.User{Email: "owner@example.com"})
	org := models.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
	require.NoError(t, db.Organizations().Create(context.Background(), &org, roles[models.RoleOwner].ID))

	return &testEnv{db: db, router: router, sessions: sessions, roles: roles, owner: owner, org: org}
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

func (e *testEnv) member(t *testing.T, email, role string) models.User {
	t.Helper()
	user := e.db.AddUser(models.User{Email: email})
	require.NoError(t, e.db.Members().Add(context.Background(), &models.OrganizationMember{
		OrganizationID: e.org.ID, UserID: user.ID, RoleID: e.roles[role].ID,
	}))
	return user
}

func (e *testEnv) createSurvey(t *testing.T, title string) models.Survey {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/surveys", map[string]interface{}{
		"organization_id": e.org.ID,
		"title":           title,
		"questions":       []map[string]string{{"type": "text", "label": "Why?"}},
	}, &e.owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var survey models.Survey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &survey))
	return survey
}

func TestSurveyRoutesRequireAuth(t *testing.T) {
	e := newTestEnv(t)
	w := e.request(t, http.MethodGet, "/api/surveys?organizationId="+e.org.ID.String(), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.request(t, http.MethodPost, "/api/surveys", map[string]string{"title": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSurveyEnforcesPlanLimit(t *testing.T) {
	e := newTestEnv(t)

	for i := 0; i < 3; i++ {
		survey := e.createSurvey(t, "Survey")
		assert.NotEmpty(t, survey.UniqueID)
		assert.Equal(t, models.SurveyDraft, survey.Status)
	}

	w := e.request(t, http.MethodPost, "/api/surveys", map[string]interface{}{
		"organization_id": e.org.ID, "title": "One too many",
	}, &e.owner)
	require.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "limit_reached", body["code"])
	assert.EqualValues(t, 3, body["usage"].(map[string]interface{})["limit"])

	require.NoError(t, e.db.Subscriptions().Upsert(context.Background(), &models.Subscription{
		UserID: e.owner.ID, Plan: "pro", Status: models.SubscriptionTrialing,
	}))
	e.createSurvey(t, "Now allowed")
}

func TestCreateSurveyValidation(t *testing.T) {
	e := newTestEnv(t)
	viewer := e.member(t, "viewer@example.com", models.RoleViewer)

	w := e.request(t, http.MethodPost, "/api/surveys", map[string]interface{}{
		"organization_id": e.org.ID, "title": "Bad", "questions": map[string]string{"not": "array"},
	}, &e.owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(t, http.MethodPost, "/api/surveys", map[string]interface{}{
		"organization_id": e.org.ID, "title": "Nope",
	}, &viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request(t, http.MethodPost, "/api/surveys", map[string]interface{}{
		"organization_id": uuid.New(), "title": "Nowhere",
	}, &e.owner)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSurveyLifecycleAndPublicAccess(t *testing.T) {
	e := newTestEnv(t)
	editor := e.member(t, "editor@example.com", models.RoleEditor)
	survey := e.createSurvey(t, "Customer feedback")
	public := "/api/public/surveys/" + survey.UniqueID

	w := e.request(t, http.MethodGet, public, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "drafts are not public")

	w = e.request(t, http.MethodPut, "/api/surveys/"+survey.ID.String(), map[string]string{"title": "Customer feedback 2026"}, &editor)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.request(t, http.MethodPost, "/api/surveys/"+survey.ID.String()+"/publish", nil, &editor)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.request(t, http.MethodGet, public, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got PublicSurvey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Customer feedback 2026", got.Title)
	assert.JSONEq(t, `[{"type":"text","label":"Why?"}]`, string(got.Questions))

	w = e.request(t, http.MethodPost, "/api/surveys/"+survey.ID.String()+"/close", nil, &editor)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.request(t, http.MethodGet, public, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.request(t, http.MethodDelete, "/api/surveys/"+survey.ID.String(), nil, &editor)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request(t, http.MethodDelete, "/api/surveys/"+survey.ID.String(), nil, &e.owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.request(t, http.MethodGet, "/api/surveys/"+survey.ID.String(), nil, &e.owner)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.request(t, http.MethodGet, "/api/public/surveys/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublishRequiresQuestions(t *testing.T) {
	e := newTestEnv(t)
	w := e.request(t, http.MethodPost, "/api/surveys", map[string]interface{}{
		"organization_id": e.org.ID, "title": "Empty",
	}, &e.owner)
	require.Equal(t, http.StatusCreated, w.Code)
	var survey models.Survey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &survey))

	w = e.request(t, http.MethodPost, "/api/surveys/"+survey.ID.String()+"/publish", nil, &e.owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePublishedSurveyKeepsQuestions(t *testing.T) {
	e := newTestEnv(t)
	survey := e.createSurvey(t, "Live")
	path := "/api/surveys/" + survey.ID.String()

	w := e.request(t, http.MethodPost, path+"/publish", nil, &e.owner)
	require.Equal(t, http.StatusOK, w.Code)

	for _, questions := range []interface{}{nil, []interface{}{}} {
		w = e.request(t, http.MethodPut, path, map[string]interface{}{"questions": questions}, &e.owner)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	w = e.request(t, http.MethodGet, "/api/public/surveys/"+survey.UniqueID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got PublicSurvey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.JSONEq(t, `[{"type":"text","label":"Why?"}]`, string(got.Questions))

	// Drafts may be emptied while they are being edited.
	draft := e.createSurvey(t, "Draft")
	w = e.request(t, http.MethodPut, "/api/surveys/"+draft.ID.String(), map[string]interface{}{"questions": []interface{}{}}, &e.owner)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListSurveys(t *testing.T) {
	e := newTestEnv(t)
	outsider := e.db.AddUser(models.User{Email: "outsider@example.com"})
	e.createSurvey(t, "Alpha")
	e.createSurvey(t, "Beta")

	w := e.request(t, http.MethodGet, "/api/surveys?organizationId="+e.org.ID.String()+"&search=alp", nil, &e.owner)
	require.Equal(t, http.StatusOK, w.Code)
	var page SurveyListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Alpha", page.Items[0].Title)
	assert.EqualValues(t, 1, page.Pagination.Total)

	w = e.request(t, http.MethodGet, "/api/surveys", nil, &e.owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(t, http.MethodGet, "/api/surveys?organizationId="+e.org.ID.String(), nil, &outsider)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
