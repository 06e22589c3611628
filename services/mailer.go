package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"natours/config"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Message is a rendered email with HTML and plain-text parts.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer picks Resend in production when an API key is configured, SMTP
// when a host is configured, and otherwise a mailer that only logs.
func NewMailer(cfg *config.Config, log zerolog.Logger) Mailer {
	ec := cfg.Email
	from := ec.From
	if ec.FromName != "" {
		from = fmt.Sprintf("%s <%s>", ec.FromName, ec.From)
	}

	switch {
	case cfg.IsProduction() && ec.ResendAPIKey != "":
		return &ResendMailer{client: resend.NewClient(ec.ResendAPIKey), from: from}
	case ec.SMTPHost != "" && ec.SMTPPort != "":
		return &SMTPMailer{
			addr:     fmt.Sprintf("%s:%s", ec.SMTPHost, ec.SMTPPort),
			host:     ec.SMTPHost,
			username: ec.SMTPUsername,
			password: ec.SMTPPassword,
			from:     from,
			sender:   ec.From,
		}
	}
	return &LogMailer{log: log}
}

type ResendMailer struct {
	client *resend.Client
	from   string
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return errors.Wrap(err, "resend: send email")
	}
	return nil
}

type SMTPMailer struct {
	addr     string
	host     string
	username string
	password string
	from     string
	sender   string
}

const mimeBoundary = "----=_NATOURS_EMAIL_BOUNDARY"

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	safe := func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), "\r\n", " ")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", safe(m.from)))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", safe(msg.To)))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", safe(msg.Subject)))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", mimeBoundary))

	sb.WriteString(fmt.Sprintf("--%s\r\n", mimeBoundary))
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(msg.Text + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", mimeBoundary))
	sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	sb.WriteString(msg.HTML + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s--\r\n", mimeBoundary))

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(m.addr, auth, m.sender, []string{msg.To}, []byte(sb.String())); err != nil {
		return errors.Wrapf(err, "smtp: send email to %s", msg.To)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log zerolog.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("[MOCK EMAIL] " + msg.Text)
	return nil
}
