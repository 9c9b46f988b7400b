// Package notify carries the best-effort outbound side effects of the
// invite flow. Delivery failure is logged and reported as a warning,
// never as a request error.
package notify

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/rs/zerolog/log"

	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

var (
	logger = log.With().Str("component", "notify").Logger()
)

//go:embed templates/invite_email.html
var inviteEmailTemplateFile string

var inviteEmailTemplate = template.Must(template.New("inviteEmail").Parse(inviteEmailTemplateFile))

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Mailer delivers an invitation email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendInvite(ctx context.Context, email, inviteLink, boardTitle string, role models.Role) error
}

// NewMailer returns an SMTP-backed mailer, or a logging no-op when no
// host is configured.
func NewMailer(cfg *MailConfig) Mailer {
	if cfg == nil || cfg.Host == "" {
		logger.Warn().Msg("No SMTP host configured, invite emails will not be sent")
		return &NopMailer{}
	}
	return &SMTPMailer{config: cfg}
}

type inviteEmailData struct {
	BoardTitle string
	Role       models.Role
	RoleBlurb  string
	InviteLink string
}

// RenderInviteEmail produces the HTML body shared by all mailer
// implementations.
func RenderInviteEmail(inviteLink, boardTitle string, role models.Role) (string, error) {
	blurb := "view cards"
	if role == models.RoleEditor {
		blurb = "view and edit cards"
	}
	var buf bytes.Buffer
	err := inviteEmailTemplate.Execute(&buf, &inviteEmailData{
		BoardTitle: boardTitle,
		Role:       role,
		RoleBlurb:  blurb,
		InviteLink: inviteLink,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

type SMTPMailer struct {
	config *MailConfig
}

func (m *SMTPMailer) SendInvite(ctx context.Context, email, inviteLink, boardTitle string, role models.Role) error {
	body, err := RenderInviteEmail(inviteLink, boardTitle, role)
	if err != nil {
		return err
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", email)
	fmt.Fprintf(&msg, "Subject: You've been invited to collaborate on FlowSpace\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}
	if err := smtp.SendMail(addr, auth, m.config.From, []string{email}, msg.Bytes()); err != nil {
		logger.Error().Err(err).Str("email", email).Msg("Failed to send invite email")
		return err
	}
	return nil
}

// NopMailer logs instead of sending. Used when mail is unconfigured and by
// tests that do not care about delivery.
type NopMailer struct{}

func (*NopMailer) SendInvite(ctx context.Context, email, inviteLink, boardTitle string, role models.Role) error {
	logger.Info().Str("email", email).Str("board", boardTitle).Msg("Invite email suppressed (no mailer configured)")
	return nil
}
