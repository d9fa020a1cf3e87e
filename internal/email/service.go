package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/storefleet/storefleet/internal/config"
	"github.com/storefleet/storefleet/internal/logging"
)

// Service delivers transactional mail over SMTP.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	companyName  string
	frontendURL  string
	logger       *logging.Logger
}

func NewService(cfg config.EmailConfig, logger *logging.Logger) *Service {
	from := cfg.FromAddress
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Service{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    from,
		companyName:  cfg.CompanyName,
		frontendURL:  cfg.FrontendURL,
		logger:       logger,
	}
}

// SendWelcomeEmail greets a newly registered user.
// This method is designed to be called in a goroutine.
func (s *Service) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	subject := fmt.Sprintf("Welcome to %s!", s.companyName)
	body, err := s.renderWelcomeEmailTemplate(name)
	if err != nil {
		s.logger.Error("failed to render welcome email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, subject, body); err != nil {
		s.logger.Error("failed to send welcome email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("welcome email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail delivers the reset secret. Unlike the welcome
// mail this one is awaited by the caller: the reset flow must know whether
// the token actually reached the user.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, name, plainToken string) error {
	resetLink := fmt.Sprintf("%s/password/reset/%s", s.frontendURL, plainToken)

	subject := fmt.Sprintf("%s password reset", s.companyName)
	body, err := s.renderPasswordResetEmailTemplate(name, plainToken, resetLink)
	if err != nil {
		s.logger.Error("failed to render password reset email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, subject, body); err != nil {
		s.logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("password reset email sent", "email", toEmail)
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
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

func (s *Service) renderWelcomeEmailTemplate(name string) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #1D4ED8;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Welcome to {{.CompanyName}}!</h1>
    </div>
    <div class="content">
        <h2>Hi {{.Name}},</h2>
        <p>Your account has been created and you are ready to start shopping.</p>
        <p>Browse the catalog, leave reviews, and track your orders from your profile page.</p>
        <p style="margin-top: 30px;">If you didn't create this account, please contact our support team.</p>
    </div>
    <div class="footer">
        <p>&copy; 2026 {{.CompanyName}}. All rights reserved.</p>
    </div>
</body>
</html>
`

	t, err := template.New("welcome").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Name        string
		CompanyName string
	}{
		Name:        name,
		CompanyName: s.companyName,
	}

	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

func (s *Service) renderPasswordResetEmailTemplate(name, token, resetLink string) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #1D4ED8;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .button {
            display: inline-block;
            background-color: #1D4ED8;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
        .token {
            font-family: monospace;
            background-color: #eef2ff;
            padding: 10px;
            border-radius: 5px;
            word-break: break-all;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Password Reset Request</h1>
    </div>
    <div class="content">
        <h2>Hi {{.Name}},</h2>
        <p>You requested to reset your password. Click the button below to choose a new one.</p>

        <a href="{{.ResetLink}}" class="button" style="color: white !important;">Reset Password</a>

        <p>Or use this reset token directly:</p>
        <p class="token">{{.Token}}</p>

        <p style="margin-top: 30px;">If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
    </div>
    <div class="footer">
        <p>This token will expire in 10 minutes.</p>
        <p>&copy; 2026 {{.CompanyName}}. All rights reserved.</p>
    </div>
</body>
</html>
`

	t, err := template.New("passwordReset").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Name        string
		Token       string
		ResetLink   string
		CompanyName string
	}{
		Name:        name,
		Token:       token,
		ResetLink:   resetLink,
		CompanyName: s.companyName,
	}

	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
