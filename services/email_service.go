package services

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	texttemplate "text/template"

	"natours/models"
	"natours/templates"

	"github.com/pkg/errors"
)

const (
	WelcomeSubject       = "Welcome to the Natours Family!"
	PasswordResetSubject = "Your password reset token (valid for only 10 minutes)"
)

// Notifier sends the account emails.
type Notifier interface {
	SendWelcome(ctx context.Context, user *models.User, url string) error
	SendPasswordReset(ctx context.Context, user *models.User, url string) error
}

// EmailData is what every email template receives.
type EmailData struct {
	Subject   string
	FirstName string
	URL       string
}

// EmailService renders the embedded email templates and hands the result to
// a Mailer.
type EmailService struct {
	mailer Mailer
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

func NewEmailService(mailer Mailer) (*EmailService, error) {
	html, text, err := templates.Emails()
	if err != nil {
		return nil, errors.Wrap(err, "parse email templates")
	}
	return &EmailService{mailer: mailer, html: html, text: text}, nil
}

func (s *EmailService) SendWelcome(ctx context.Context, user *models.User, url string) error {
	return s.Send(ctx, "welcome", user.Email, EmailData{Subject: WelcomeSubject, FirstName: user.FirstName(), URL: url})
}

func (s *EmailService) SendPasswordReset(ctx context.Context, user *models.User, url string) error {
	return s.Send(ctx, "password_reset", user.Email, EmailData{Subject: PasswordResetSubject, FirstName: user.FirstName(), URL: url})
}

// Send renders template name (without extension) in both formats and mails it
// to the given address.
func (s *EmailService) Send(ctx context.Context, name, to string, data EmailData) error {
	var html, text bytes.Buffer
	if err := s.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return errors.Wrapf(err, "render %s.html", name)
	}
	if err := s.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return errors.Wrapf(err, "render %s.txt", name)
	}
	return s.mailer.Send(ctx, Message{
		To:      to,
		Subject: data.Subject,
		HTML:    html.String(),
		Text:    text.String(),
	})
}
