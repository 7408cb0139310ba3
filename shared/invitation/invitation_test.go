package invitation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyhub-backend/shared/database/models"
)

func TestNewToken(t *testing.T) {
	token, hash, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, token, 43) // 32 bytes, unpadded base64url
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.Len(t, hash, 64)
	assert.Equal(t, HashToken(token), hash)

	other, _, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestIsInvitationExpired(t *testing.T) {
	expiresAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	inv := &models.OrganizationInvitation{ExpiresAt: expiresAt}

	assert.False(t, IsInvitationExpired(inv, expiresAt.Add(-time.Second)))
	assert.False(t, IsInvitationExpired(inv, expiresAt), "the expiry instant itself is still valid")
	assert.True(t, IsInvitationExpired(inv, expiresAt.Add(time.Nanosecond)))
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(7*24*time.Hour), ExpiresAt(now, 0))
	assert.Equal(t, now.Add(time.Hour), ExpiresAt(now, time.Hour))
}

func TestCanRespond(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	pending := &models.OrganizationInvitation{
		Email:     "Invitee@Example.com",
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(time.Hour),
	}

	assert.NoError(t, CanRespond(pending, " invitee@example.com", now))
	assert.ErrorIs(t, CanRespond(pending, "someone@example.com", now), ErrEmailMismatch)
	assert.ErrorIs(t, CanRespond(pending, "invitee@example.com", now.Add(2*time.Hour)), ErrExpired)

	accepted := *pending
	accepted.Status = models.InvitationAccepted
	assert.ErrorIs(t, CanRespond(&accepted, "invitee@example.com", now), ErrNotPending)
	assert.ErrorIs(t, CanRevoke(&accepted), ErrNotPending)
	assert.NoError(t, CanRevoke(pending))
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	inv := &models.OrganizationInvitation{Status: models.InvitationPending, ExpiresAt: now.Add(-time.Minute)}
	assert.Equal(t, models.InvitationExpired, EffectiveStatus(inv, now))

	inv.Status = models.InvitationRevoked
	assert.Equal(t, models.InvitationRevoked, EffectiveStatus(inv, now))
}
