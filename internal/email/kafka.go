package email

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/logging"
)

// EmailEvent is the JSON payload consumed by the external mail service
type EmailEvent struct {
	Type       Kind      `json:"type"`
	To         string    `json:"to"`
	Username   string    `json:"username"`
	Subject    string    `json:"subject"`
	Link       string    `json:"link"`
	HTML       string    `json:"html"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher renders emails and publishes them as events instead of sending
type KafkaPublisher struct {
	writer   messageWriter
	links    Links
	renderer *renderer
	timeout  time.Duration
	now      func() time.Time
}

func NewKafkaPublisher(cfg config.EmailConfig, auth config.AuthConfig) (*KafkaPublisher, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBroker),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}

	// Managed brokers require SASL/PLAIN over TLS
	if cfg.KafkaUsername != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: cfg.KafkaUsername,
				Password: cfg.KafkaPassword,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	return newKafkaPublisher(writer, cfg, auth)
}

func newKafkaPublisher(writer messageWriter, cfg config.EmailConfig, auth config.AuthConfig) (*KafkaPublisher, error) {
	links := Links{BaseURL: cfg.BaseURL}

	r, err := newRenderer(cfg.AppName, links, auth.VerificationTokenTTL, auth.ResetTokenTTL)
	if err != nil {
		return nil, err
	}

	return &KafkaPublisher{
		writer:   writer,
		links:    links,
		renderer: r,
		timeout:  cfg.SendTimeout,
		now:      time.Now,
	}, nil
}

func (p *KafkaPublisher) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	return p.publish(ctx, KindVerification, toEmail, username, p.links.Verification(token))
}

func (p *KafkaPublisher) SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error {
	return p.publish(ctx, KindPasswordReset, toEmail, username, p.links.PasswordReset(token))
}

func (p *KafkaPublisher) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	return p.publish(ctx, KindWelcome, toEmail, username, p.links.Login())
}

func (p *KafkaPublisher) publish(ctx context.Context, kind Kind, toEmail, username, link string) error {
	logger := logging.GetLoggerFromContext(ctx)

	msg, err := p.renderer.render(kind, toEmail, username, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	event := EmailEvent{
		Type:       kind,
		To:         msg.To,
		Username:   msg.Username,
		Subject:    msg.Subject,
		Link:       msg.Link,
		HTML:       msg.HTML,
		OccurredAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal email event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(toEmail),
		Value: payload,
		Time:  event.OccurredAt,
	})
	if err != nil {
		logger.Error("failed to publish email event", "kind", kind, "email", toEmail, "error", err)
		return fmt.Errorf("publish email event: %w", err)
	}

	logger.Info("email event published", "kind", kind, "email", toEmail)
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
