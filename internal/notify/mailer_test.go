package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

func TestRenderInviteEmail(t *testing.T) {
	body, err := RenderInviteEmail("http://localhost:8080/invite/tok123", "Roadmap", models.RoleEditor)
	require.NoError(t, err)
	assert.Contains(t, body, "Roadmap")
	assert.Contains(t, body, "http://localhost:8080/invite/tok123")
	assert.Contains(t, body, "editor")
	assert.Contains(t, body, "view and edit cards")

	body, err = RenderInviteEmail("http://localhost:8080/invite/tok456", "Roadmap", models.RoleViewer)
	require.NoError(t, err)
	assert.Contains(t, body, "view cards")
	assert.NotContains(t, body, "view and edit cards")
}

func TestRenderInviteEmailEscapesTitle(t *testing.T) {
	body, err := RenderInviteEmail("http://localhost:8080/invite/tok123", `<script>alert("x")</script>`, models.RoleViewer)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestNewMailer(t *testing.T) {
	assert.IsType(t, &NopMailer{}, NewMailer(nil))
	assert.IsType(t, &NopMailer{}, NewMailer(&MailConfig{}))
	assert.IsType(t, &SMTPMailer{}, NewMailer(&MailConfig{Host: "smtp.example.com", Port: 587}))
}

func TestNopMailer(t *testing.T) {
	mailer := &NopMailer{}
	err := mailer.SendInvite(context.Background(), "a@example.com", "http://link", "Roadmap", models.RoleViewer)
	assert.NoError(t, err)
}
