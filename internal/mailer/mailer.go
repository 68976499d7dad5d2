// Package mailer delivers outbound email: the daily content mail and the
// weekly admin summary. Delivery is behind a small interface so jobs and
// handlers can run against a log-only mailer in development.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/dailymanna/manna/internal/logger"
)

// TLS modes accepted by the SMTP mailer.
const (
	TLSModeStartTLS = "starttls"
	TLSModeSSL      = "ssl"
)

// Message is one outbound email. HTMLBody is optional; when present the
// message goes out as multipart/alternative with the plain body first.
type Message struct {
	From     string
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPOptions configures the SMTP mailer.
type SMTPOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	TLSMode  string // starttls (default) or ssl
}

// SMTPMailer delivers through a single SMTP account.
type SMTPMailer struct {
	opts SMTPOptions
	log  logger.Logger
}

func NewSMTPMailer(opts SMTPOptions, log logger.Logger) (*SMTPMailer, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	switch strings.ToLower(opts.TLSMode) {
	case "", TLSModeStartTLS:
		opts.TLSMode = TLSModeStartTLS
	case TLSModeSSL:
		opts.TLSMode = TLSModeSSL
	default:
		return nil, fmt.Errorf("unknown TLS mode %q", opts.TLSMode)
	}
	return &SMTPMailer{opts: opts, log: log}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	from := msg.From
	if from == "" {
		from = m.opts.User
	}

	client, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.opts.User != "" {
		auth := smtp.PlainAuth("", m.opts.User, m.opts.Password, m.opts.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT %s failed: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(encodeMessage(from, msg)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}

	m.log.Info("email sent",
		logger.String("subject", msg.Subject),
		logger.Int("recipients", len(msg.To)))
	return client.Quit()
}

// dial opens the SMTP session in the configured TLS mode, honoring context
// cancellation during connection setup.
func (m *SMTPMailer) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(m.opts.Host, fmt.Sprintf("%d", m.opts.Port))
	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial failed: %w", err)
	}

	if m.opts.TLSMode == TLSModeSSL {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: m.opts.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp tls handshake failed: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, m.opts.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake failed: %w", err)
	}

	if m.opts.TLSMode == TLSModeStartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.opts.Host}); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp starttls failed: %w", err)
		}
	}
	return client, nil
}

// LogMailer records messages instead of sending them. Used when SMTP is not
// configured, so the rest of the pipeline stays exercisable.
type LogMailer struct {
	log logger.Logger
}

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email suppressed (no SMTP configured)",
		logger.String("subject", msg.Subject),
		logger.String("to", strings.Join(msg.To, ", ")),
		logger.Int("text_bytes", len(msg.TextBody)),
		logger.Int("html_bytes", len(msg.HTMLBody)))
	return nil
}
