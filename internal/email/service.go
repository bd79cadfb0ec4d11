package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"

	"github.com/redmonkez12/book-catalog-api/internal/logging"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #4F46E5; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .token { font-family: monospace; font-size: 16px; background: #eee; padding: 8px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Welcome, {{.Name}}!</h1>
    </div>
    <div class="content">
        <h2>Confirm your email address</h2>
        <p>Click the button below to activate your account.</p>

        <a href="{{.ConfirmLink}}" class="button" style="color: white !important;">Confirm Email Address</a>

        <p>Or enter this confirmation code:</p>
        <p class="token">{{.Token}}</p>

        <p style="margin-top: 30px;">If you didn't create an account, you can safely ignore this email.</p>
    </div>
</body>
</html>
`))

// Service sends account emails over SMTP. With no SMTP host configured it
// only logs, which keeps local development usable.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
	logger       *logging.Logger
	send         func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string, logger *logging.Logger) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
		logger:       logger,
		send:         smtp.SendMail,
	}
}

// SendConfirmationEmail mails the confirmation token and a link that
// carries it. Designed to be called in a goroutine.
func (s *Service) SendConfirmationEmail(ctx context.Context, toEmail, name, token string) error {
	link := fmt.Sprintf("%s/confirm?email=%s&token=%s",
		s.frontendURL, url.QueryEscape(toEmail), url.QueryEscape(token))

	body, err := renderConfirmation(name, link, token)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if s.smtpHost == "" {
		s.logger.Info("smtp not configured, confirmation email not sent", "email", toEmail, "link", link)
		return nil
	}

	if err := s.sendEmail(toEmail, "Confirm your email address", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("confirmation email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.send(addr, auth, s.fromEmail, []string{to}, msg)
}

func renderConfirmation(name, link, token string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Name        string
		ConfirmLink string
		Token       string
	}{
		Name:        name,
		ConfirmLink: link,
		Token:       token,
	}

	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
