package email

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/logging"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender renders the embedded templates and sends them over SMTP
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
	timeout  time.Duration
	links    Links
	renderer *renderer
	send     sendFunc
}

func NewSMTPSender(cfg config.EmailConfig, auth config.AuthConfig) (*SMTPSender, error) {
	links := Links{BaseURL: cfg.BaseURL}

	r, err := newRenderer(cfg.AppName, links, auth.VerificationTokenTTL, auth.ResetTokenTTL)
	if err != nil {
		return nil, err
	}

	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.FromEmail,
		timeout:  cfg.SendTimeout,
		links:    links,
		renderer: r,
		send:     smtp.SendMail,
	}, nil
}

// SendVerificationEmail sends an email verification link to the user
func (s *SMTPSender) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	return s.deliver(ctx, KindVerification, toEmail, username, s.links.Verification(token))
}

// SendPasswordResetEmail sends a password reset link to the user
func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error {
	return s.deliver(ctx, KindPasswordReset, toEmail, username, s.links.PasswordReset(token))
}

// SendWelcomeEmail greets a freshly verified user
func (s *SMTPSender) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	return s.deliver(ctx, KindWelcome, toEmail, username, s.links.Login())
}

func (s *SMTPSender) deliver(ctx context.Context, kind Kind, toEmail, username, link string) error {
	logger := logging.GetLoggerFromContext(ctx)

	msg, err := s.renderer.render(kind, toEmail, username, link)
	if err != nil {
		logger.Error("failed to render email template", "kind", kind, "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(ctx, msg); err != nil {
		logger.Error("failed to send email", "kind", kind, "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("email sent", "kind", kind, "email", toEmail)
	return nil
}

// sendEmail gives up waiting once ctx or the send timeout expires. net/smtp
// has no context support, so a stalled dial finishes in the background.
func (s *SMTPSender) sendEmail(ctx context.Context, msg Message) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.from, []string{msg.To}, buildMIME(s.from, msg))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMIME(from string, msg Message) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		from, msg.To, msg.Subject, msg.HTML,
	))
}
