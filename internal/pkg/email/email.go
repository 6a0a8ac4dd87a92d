package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog"
)

// EmailService sends the account emails of the ERP
type EmailService interface {
	SendWelcomeEmail(ctx context.Context, toEmail, toName, loginID, resetLink string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, resetLink string) error
}

// Message is a rendered HTML email
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// transport delivers a rendered message
type transport interface {
	send(ctx context.Context, msg Message) error
}

// templated renders the ERP emails and hands them to a transport
type templated struct {
	appName   string
	transport transport
}

func (s *templated) SendWelcomeEmail(ctx context.Context, toEmail, toName, loginID, resetLink string) error {
	return s.transport.send(ctx, Message{
		To:       toEmail,
		ToName:   toName,
		Subject:  fmt.Sprintf("Welcome to %s - your account is ready", s.appName),
		HTMLBody: welcomeBody(s.appName, toName, loginID, resetLink),
	})
}

func (s *templated) SendPasswordResetEmail(ctx context.Context, toEmail, resetLink string) error {
	return s.transport.send(ctx, Message{
		To:       toEmail,
		Subject:  fmt.Sprintf("Reset your %s password", s.appName),
		HTMLBody: resetBody(s.appName, resetLink),
	})
}

func welcomeBody(appName, name, loginID, resetLink string) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Welcome to %s!</h2>
				<p>Hello %s,</p>
				<p>Your account has been created. Your ID is <strong>%s</strong>.</p>
				<p>Please set your own password before signing in:</p>
				<div style="text-align: center; margin: 30px 0;">
					<a href="%s" style="background-color: #4a86e8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Set Password</a>
				</div>
				<p>Best regards,<br>The %s Team</p>
			</div>
		</body>
		</html>
	`, appName, name, loginID, resetLink, appName)
}

func resetBody(appName, resetLink string) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Password reset</h2>
				<p>We received a request to reset your %s password.</p>
				<div style="text-align: center; margin: 30px 0;">
					<a href="%s" style="background-color: #4a86e8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Reset Password</a>
				</div>
				<p>If you did not request this, you can ignore this email.</p>
			</div>
		</body>
		</html>
	`, appName, resetLink)
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
}

type smtpTransport struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPService creates an EmailService delivering over SMTP
func NewSMTPService(config SMTPConfig, appName string, logger zerolog.Logger) EmailService {
	return &templated{appName: appName, transport: &smtpTransport{config: config, logger: logger}}
}

func (s *smtpTransport) send(_ context.Context, msg Message) error {
	// Without credentials the message is only logged (development)
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", msg.To).
			Str("subject", msg.Subject).
			Msg("SMTP credentials not configured - email not sent")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	headers := []struct{ key, value string }{
		{"From", fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)},
		{"To", msg.To},
		{"Subject", msg.Subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	message := ""
	for _, h := range headers {
		message += fmt.Sprintf("%s: %s\r\n", h.key, h.value)
	}
	message += "\r\n" + msg.HTMLBody

	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	if !s.config.UseTLS {
		if err := smtp.SendMail(serverAddress, auth, s.config.FromEmail, []string{msg.To}, []byte(message)); err != nil {
			s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to send email")
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", serverAddress, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to connect to SMTP server")
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if err = client.Auth(auth); err != nil {
		s.logger.Error().Err(err).Msg("SMTP authentication failed")
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}
