package services

import (
	"context"
	"testing"

	"natours/config"
	"natours/logger"
	"natours/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	msgs []Message
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	m.msgs = append(m.msgs, msg)
	return nil
}

func TestEmailServiceRendersTemplates(t *testing.T) {
	t.Parallel()

	mailer := &captureMailer{}
	emails, err := NewEmailService(mailer)
	require.NoError(t, err)

	user := &models.User{Name: "Laura Wilson", Email: "laura@example.com"}
	require.NoError(t, emails.SendWelcome(context.Background(), user, "http://localhost:3000/me"))
	require.NoError(t, emails.SendPasswordReset(context.Background(), user, "http://localhost:3000/api/v1/users/reset-password/abc"))
	require.Len(t, mailer.msgs, 2)

	welcome := mailer.msgs[0]
	assert.Equal(t, "laura@example.com", welcome.To)
	assert.Equal(t, WelcomeSubject, welcome.Subject)
	assert.Contains(t, welcome.HTML, "Hi Laura,")
	assert.Contains(t, welcome.HTML, `href="http://localhost:3000/me"`)
	assert.Contains(t, welcome.Text, "http://localhost:3000/me")

	reset := mailer.msgs[1]
	assert.Equal(t, PasswordResetSubject, reset.Subject)
	assert.Contains(t, reset.Text, "reset-password/abc")
}

func TestNewMailer(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	_, ok := NewMailer(cfg, logger.Nop()).(*LogMailer)
	assert.True(t, ok)

	cfg.Email.SMTPHost, cfg.Email.SMTPPort = "smtp.mailtrap.io", "2525"
	_, ok = NewMailer(cfg, logger.Nop()).(*SMTPMailer)
	assert.True(t, ok)

	cfg.Env = config.EnvProduction
	cfg.Email.ResendAPIKey = "re_test"
	_, ok = NewMailer(cfg, logger.Nop()).(*ResendMailer)
	assert.True(t, ok)

	require.NoError(t, NewMailer(config.Default(), logger.Nop()).Send(context.Background(), Message{To: "a@b.io"}))
}
