package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notificationConfig "surveyhub-backend/notification-service/config"
	"surveyhub-backend/shared/clients"
)

type flakyMailer struct {
	failures int
	sent     []Message
	calls    int
}

func (m *flakyMailer) Send(_ context.Context, msg Message) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("relay busy")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newEmailService(t *testing.T, mailer Mailer, attempts int) *EmailService {
	t.Helper()
	ts, err := NewTemplateService("")
	require.NoError(t, err)
	return NewEmailService(mailer, ts, notificationConfig.EmailConfig{RetryAttempts: attempts}, nil)
}

func TestSendSubscriptionEmailRetries(t *testing.T) {
	mailer := &flakyMailer{failures: 2}
	es := newEmailService(t, mailer, 3)

	err := es.SendSubscriptionEmail(context.Background(), clients.SubscriptionEmailRequest{
		Email: "payer@example.com", Name: "Pat", Plan: "pro", Status: "active",
		ManageURL: "https://app.test/billing",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, mailer.calls)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"payer@example.com"}, mailer.sent[0].To)
	assert.Equal(t, "Your SurveyHub subscription", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].HTML, "Hi Pat")
}

func TestSendEmailGivesUp(t *testing.T) {
	mailer := &flakyMailer{failures: 5}
	es := newEmailService(t, mailer, 2)

	err := es.SendInvitationEmail(context.Background(), clients.InvitationEmailRequest{
		Email: "new@example.com", OrganizationName: "Acme", AcceptURL: "https://app.test/i/x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, mailer.calls)
}

func TestSendEmailRequiresRecipient(t *testing.T) {
	mailer := &flakyMailer{}
	es := newEmailService(t, mailer, 1)
	err := es.SendInvitationEmail(context.Background(), clients.InvitationEmailRequest{})
	assert.Error(t, err)
	assert.Zero(t, mailer.calls)
}

func TestBuildMessage(t *testing.T) {
	raw := string(buildMessage("noreply@surveyhub.app", "SurveyHub", Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Join Café",
		HTML:    "<p>hi</p>",
	}))

	headers, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "<p>hi</p>", body)
	assert.Contains(t, headers, "From: SurveyHub <noreply@surveyhub.app>")
	assert.Contains(t, headers, "To: a@example.com, b@example.com")
	assert.Contains(t, headers, "Subject: =?utf-8?q?Join_Caf=C3=A9?=")
	assert.Contains(t, headers, "Content-Type: text/html; charset=UTF-8")
}
