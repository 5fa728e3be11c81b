package config

import (
	"fmt"
	"strings"
	"time"
)

// MailTransport selects the mail.Transport implementation.
type MailTransport string

const (
	// MailTransportSMTP delivers through an SMTP relay.
	MailTransportSMTP MailTransport = "smtp"
	// MailTransportLog only logs messages. Development only.
	MailTransportLog MailTransport = "log"
)

// UnmarshalText implements encoding.TextUnmarshaler for MailTransport.
func (m *MailTransport) UnmarshalText(text []byte) error {
	v := MailTransport(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case MailTransportSMTP, MailTransportLog:
		*m = v
		return nil
	default:
		return fmt.Errorf("invalid mail transport %q (valid: smtp, log)", string(text))
	}
}

// MailConfig contains mail transport settings.
type MailConfig struct {
	Transport MailTransport `env:"MAIL_TRANSPORT" envDefault:"log"`

	SMTPHost     string `env:"MAIL_SMTP_HOST"     envDefault:"localhost"`
	SMTPPort     int    `env:"MAIL_SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"MAIL_SMTP_USERNAME"`
	SMTPPassword string `env:"MAIL_SMTP_PASSWORD"`
	// SMTPTLS uses implicit TLS (port 465 style). Without it STARTTLS is used when offered.
	SMTPTLS                bool `env:"MAIL_SMTP_TLS"                  envDefault:"false"`
	SMTPInsecureSkipVerify bool `env:"MAIL_SMTP_INSECURE_SKIP_VERIFY" envDefault:"false"`

	// SendTimeout bounds a single send. A timeout counts as a retryable transport failure.
	SendTimeout time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to mail configuration values.
func (m *MailConfig) Sanitize() {
	if m.Transport == "" {
		m.Transport = MailTransportLog
	}
	m.SMTPHost = strings.TrimSpace(m.SMTPHost)
	if m.SMTPPort <= 0 || m.SMTPPort > 65535 {
		m.SMTPPort = 587
	}
	if m.SendTimeout < time.Second {
		m.SendTimeout = time.Second
	}
}
