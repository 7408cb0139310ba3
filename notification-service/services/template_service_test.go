package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyhub-backend/shared/clients"
)

func TestRenderBuiltinInvitation(t *testing.T) {
	ts, err := NewTemplateService("")
	require.NoError(t, err)

	data := clients.InvitationEmailRequest{
		Email:            "new@example.com",
		OrganizationName: "Acme & Co",
		InviterName:      "Olive",
		RoleName:         "editor",
		AcceptURL:        "https://app.test/invitations/abc",
		ExpiresAt:        "June 1, 2026",
	}
	body, err := ts.RenderTemplate(TemplateInvitation, data)
	require.NoError(t, err)
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Acme &amp; Co")
	assert.Contains(t, body, `href="https://app.test/invitations/abc"`)
	assert.Contains(t, body, "June 1, 2026")

	subject, err := ts.Subject(TemplateInvitation, data)
	require.NoError(t, err)
	assert.Equal(t, "Join Acme & Co on SurveyHub", subject)
}

func TestRenderUnknownTemplate(t *testing.T) {
	ts, err := NewTemplateService("")
	require.NoError(t, err)
	_, err = ts.RenderTemplate("missing", nil)
	assert.Error(t, err)
}

func TestTemplateDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layout.html"),
		[]byte(`{{define "layout"}}[{{template "content" .}}]{{end}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subscription.html"),
		[]byte(`{{define "title"}}Plan {{.Plan}}{{end}}{{define "content"}}{{.Status}}{{end}}`), 0o644))

	ts, err := NewTemplateService(dir)
	require.NoError(t, err)
	body, err := ts.RenderTemplate(TemplateSubscription, clients.SubscriptionEmailRequest{Plan: "pro", Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, "[active]", body)

	_, err = NewTemplateService(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}
