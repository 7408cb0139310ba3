package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	notificationConfig "surveyhub-backend/notification-service/config"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/metrics"
)

const (
	TemplateInvitation   = "invitation"
	TemplateSubscription = "subscription"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailService renders the transactional templates and hands them to a
// Mailer, retrying transient failures.
type EmailService struct {
	mailer    Mailer
	templates *TemplateService
	metrics   *metrics.Metrics
	attempts  int
	delay     time.Duration
	log       *zap.Logger
}

func NewEmailService(mailer Mailer, templates *TemplateService, cfg notificationConfig.EmailConfig, log *zap.Logger) *EmailService {
	if log == nil {
		log = zap.NewNop()
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &EmailService{
		mailer:    mailer,
		templates: templates,
		metrics:   metrics.NewMetrics(),
		attempts:  attempts,
		delay:     cfg.RetryDelay,
		log:       log.Named("email"),
	}
}

// SendInvitationEmail sends the organization invitation.
func (es *EmailService) SendInvitationEmail(ctx context.Context, req clients.InvitationEmailRequest) error {
	return es.send(ctx, TemplateInvitation, req.Email, req)
}

// SendSubscriptionEmail sends a subscription status change notice.
func (es *EmailService) SendSubscriptionEmail(ctx context.Context, req clients.SubscriptionEmailRequest) error {
	return es.send(ctx, TemplateSubscription, req.Email, req)
}

func (es *EmailService) send(ctx context.Context, template, to string, data interface{}) (err error) {
	defer func() { es.metrics.RecordEmail(template, err) }()

	if to == "" {
		return errors.New("recipient cannot be empty")
	}
	subject, err := es.templates.Subject(template, data)
	if err != nil {
		return err
	}
	body, err := es.templates.RenderTemplate(template, data)
	if err != nil {
		return err
	}
	msg := Message{To: []string{to}, Subject: subject, HTML: body}

	for attempt := 1; ; attempt++ {
		err = es.mailer.Send(ctx, msg)
		if err == nil {
			es.log.Info("email sent", zap.String("template", template), zap.String("to", to))
			return nil
		}
		if attempt >= es.attempts {
			return fmt.Errorf("sending %s email after %d attempts: %w", template, attempt, err)
		}
		es.log.Warn("email delivery failed, retrying",
			zap.String("template", template), zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(es.delay * time.Duration(attempt)):
		}
	}
}

// SMTPConfig is what SMTPMailer needs to reach the relay.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// ImplicitTLS dials TLS directly; otherwise STARTTLS is used when offered.
	ImplicitTLS bool
	Timeout     time.Duration
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == "465" {
		cfg.ImplicitTLS = true
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if m.cfg.ImplicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if !m.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if m.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(m.cfg.From, m.cfg.FromName, msg)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage renders the RFC 5322 headers and HTML body.
func buildMessage(from, fromName string, msg Message) []byte {
	var b strings.Builder
	if fromName != "" {
		b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", fromName), from))
	} else {
		b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	}
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// LogMailer logs messages instead of sending them, for environments
// without an SMTP relay.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log.Named("mail")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email delivery disabled, message dropped",
		zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Int("bytes", len(msg.HTML)))
	return nil
}
