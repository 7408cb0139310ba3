package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/invitation"
	"surveyhub-backend/shared/store"
)

func (e *testEnv) seedInvitation(t *testing.T, email string, status models.InvitationStatus, expiresAt time.Time) string {
	t.Helper()
	token, hash, err := invitation.NewToken()
	require.NoError(t, err)
	require.NoError(t, e.db.Invitations().Create(context.Background(), &models.OrganizationInvitation{
		OrganizationID: e.org.ID,
		Email:          email,
		RoleID:         e.roles[models.RoleEditor].ID,
		TokenHash:      hash,
		InvitedByID:    e.owner.ID,
		Status:         status,
		ExpiresAt:      expiresAt,
	}))
	return token
}

func TestDeclineInvitation(t *testing.T) {
	e := newTestEnv(t, false)
	invitee := e.db.AddUser(models.User{Email: "invitee@example.com"})
	stranger := e.db.AddUser(models.User{Email: "stranger@example.com"})

	valid := e.seedInvitation(t, "Invitee@Example.com", models.InvitationPending, e.now.Add(time.Hour))
	expired := e.seedInvitation(t, "invitee@example.com", models.InvitationPending, e.now.Add(-time.Second))
	boundary := e.seedInvitation(t, "invitee@example.com", models.InvitationPending, e.now)
	revoked := e.seedInvitation(t, "invitee@example.com", models.InvitationRevoked, e.now.Add(time.Hour))

	tests := []struct {
		name  string
		token string
		user  *models.User
		want  int
	}{
		{"unauthenticated", valid, nil, http.StatusUnauthorized},
		{"unknown token", "does-not-exist", &invitee, http.StatusNotFound},
		{"different email", valid, &stranger, http.StatusForbidden},
		{"expired", expired, &invitee, http.StatusBadRequest},
		{"not pending", revoked, &invitee, http.StatusBadRequest},
		{"expiry instant is still valid", boundary, &invitee, http.StatusOK},
		{"declined", valid, &invitee, http.StatusOK},
		{"already declined", valid, &invitee, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := e.request(t, http.MethodPost, "/api/invitations/"+tc.token+"/decline", nil, tc.user)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			if tc.want != http.StatusOK {
				assert.NotEmpty(t, decode(t, w)["error"])
			}
		})
	}
}

func TestAcceptInvitationAddsMember(t *testing.T) {
	e := newTestEnv(t, false)
	invitee := e.db.AddUser(models.User{Email: "invitee@example.com"})
	token := e.seedInvitation(t, "invitee@example.com", models.InvitationPending, e.now.Add(time.Hour))

	w := e.request(t, http.MethodPost, "/api/invitations/"+token+"/accept", nil, &invitee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.RoleEditor, decode(t, w)["role"])

	member, err := e.db.Members().Get(context.Background(), e.org.ID, invitee.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, member.Role.Slug)

	w = e.request(t, http.MethodPost, "/api/invitations/"+token+"/accept", nil, &invitee)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A second invitation for someone already in the organization conflicts.
	again := e.seedInvitation(t, "invitee@example.com", models.InvitationPending, e.now.Add(time.Hour))
	w = e.request(t, http.MethodPost, "/api/invitations/"+again+"/accept", nil, &invitee)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPreviewInvitationIsPublic(t *testing.T) {
	e := newTestEnv(t, false)
	token := e.seedInvitation(t, "invitee@example.com", models.InvitationPending, e.now.Add(-time.Minute))

	w := e.request(t, http.MethodGet, "/api/invitations/"+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Acme", body["organization_name"])
	assert.Equal(t, string(models.InvitationExpired), body["status"])

	w = e.request(t, http.MethodGet, "/api/invitations/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateInvitationCountsPendingAgainstMemberLimit(t *testing.T) {
	e := newTestEnv(t, false)
	path := "/api/organizations/" + e.org.ID.String() + "/invitations"

	// Free plan: three members, the owner holds one seat.
	for _, email := range []string{"a@example.com", "b@example.com"} {
		w := e.request(t, http.MethodPost, path, map[string]string{"email": email, "role": models.RoleEditor}, &e.owner)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, string(models.InvitationPending), body["status"])
		assert.True(t, strings.HasPrefix(body["invite_url"].(string), "http://app.test/invitations/"))
	}

	w := e.request(t, http.MethodPost, path, map[string]string{"email": "c@example.com"}, &e.owner)
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, "limit_reached", body["code"])
	assert.EqualValues(t, 3, body["usage"].(map[string]interface{})["current"])

	require.Len(t, e.notifier.invitations, 2)
	assert.Equal(t, "a@example.com", e.notifier.invitations[0].Email)
	assert.Equal(t, "Acme", e.notifier.invitations[0].OrganizationName)
	assert.Equal(t, "Editor", e.notifier.invitations[0].RoleName)
}

func TestCreateInvitationValidation(t *testing.T) {
	e := newTestEnv(t, false)
	e.subscribe(t, e.owner, "pro")
	member := e.addMember(t, "member@example.com", models.RoleViewer)
	path := "/api/organizations/" + e.org.ID.String() + "/invitations"

	w := e.request(t, http.MethodPost, path, map[string]string{"email": "not-an-email"}, &e.owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(t, http.MethodPost, path, map[string]string{"email": "x@example.com", "role": models.RoleOwner}, &e.owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(t, http.MethodPost, path, map[string]string{"email": "x@example.com", "role": "janitor"}, &e.owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(t, http.MethodPost, path, map[string]string{"email": "MEMBER@example.com"}, &e.owner)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.request(t, http.MethodPost, path, map[string]string{"email": "new@example.com"}, &member)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request(t, http.MethodPost, path, map[string]string{"email": "new@example.com"}, &e.owner)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RoleViewer, decode(t, w)["role"])

	w = e.request(t, http.MethodPost, path, map[string]string{"email": "new@example.com"}, &e.owner)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRevokeInvitation(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedInvitation(t, "invitee@example.com", models.InvitationPending, e.now.Add(time.Hour))

	invitations, err := e.db.Invitations().ListByOrganization(context.Background(), e.org.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	path := "/api/organizations/" + e.org.ID.String() + "/invitations/" + invitations[0].ID.String()

	w := e.request(t, http.MethodDelete, path, nil, &e.owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.request(t, http.MethodDelete, path, nil, &e.owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request(t, http.MethodGet, "/api/organizations/"+e.org.ID.String()+"/invitations", nil, &e.owner)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["invitations"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, string(models.InvitationRevoked), items[0].(map[string]interface{})["status"])
}

// interleavedInvitations runs afterRead once the handler has loaded an invitation.
type interleavedInvitations struct {
	store.InvitationStore
	afterRead func(inv *models.OrganizationInvitation)
}

func (s *interleavedInvitations) read(inv *models.OrganizationInvitation, err error) (*models.OrganizationInvitation, error) {
	if err == nil && s.afterRead != nil {
		hook := s.afterRead
		s.afterRead = nil
		hook(inv)
	}
	return inv, err
}

func (s *interleavedInvitations) GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationInvitation, error) {
	return s.read(s.InvitationStore.GetByID(ctx, id))
}

func (s *interleavedInvitations) GetByTokenHash(ctx context.Context, hash string) (*models.OrganizationInvitation, error) {
	return s.read(s.InvitationStore.GetByTokenHash(ctx, hash))
}

func TestInvitationResponseAfterConcurrentAccept(t *testing.T) {
	tests := []struct {
		name    string
		respond func(t *testing.T, e *testEnv, token string, inv models.OrganizationInvitation, invitee models.User) int
	}{
		{"decline", func(t *testing.T, e *testEnv, token string, _ models.OrganizationInvitation, invitee models.User) int {
			return e.request(t, http.MethodPost, "/api/invitations/"+token+"/decline", nil, &invitee).Code
		}},
		{"revoke", func(t *testing.T, e *testEnv, _ string, inv models.OrganizationInvitation, _ models.User) int {
			path := "/api/organizations/" + e.org.ID.String() + "/invitations/" + inv.ID.String()
			return e.request(t, http.MethodDelete, path, nil, &e.owner).Code
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			interleaved := &interleavedInvitations{}
			e := newTestEnvWithStores(t, false, func(s *store.Stores) {
				interleaved.InvitationStore = s.Invitations
				s.Invitations = interleaved
			})
			invitee := e.db.AddUser(models.User{Email: "invitee@example.com"})
			token := e.seedInvitation(t, "invitee@example.com", models.InvitationPending, e.now.Add(time.Hour))
			inv, err := e.db.Invitations().GetByTokenHash(context.Background(), invitation.HashToken(token))
			require.NoError(t, err)

			interleaved.afterRead = func(read *models.OrganizationInvitation) {
				accepted := *read
				respondedAt := e.now
				accepted.RespondedAt = &respondedAt
				require.NoError(t, e.db.Invitations().Accept(context.Background(), &accepted, &models.OrganizationMember{
					OrganizationID: read.OrganizationID,
					UserID:         invitee.ID,
					RoleID:         read.RoleID,
					JoinedAt:       e.now,
				}))
			}

			assert.Equal(t, http.StatusBadRequest, tc.respond(t, e, token, *inv, invitee))

			stored, err := e.db.Invitations().GetByID(context.Background(), inv.ID)
			require.NoError(t, err)
			assert.Equal(t, models.InvitationAccepted, stored.Status)
			_, err = e.db.Members().Get(context.Background(), e.org.ID, invitee.ID)
			assert.NoError(t, err)
		})
	}
}
