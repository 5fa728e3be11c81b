package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	gomail "gopkg.in/gomail.v2"
)

// DefaultSendTimeout bounds a single SMTP conversation.
const DefaultSendTimeout = 30 * time.Second

// SMTPOptions configure an SMTPTransport.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	// ImplicitTLS dials TLS directly (port 465 style). Otherwise STARTTLS is used when offered.
	ImplicitTLS        bool
	InsecureSkipVerify bool
	Timeout            time.Duration
	Logger             *slog.Logger
}

// SMTPTransport delivers gomail messages. The dialer holds the connection settings;
// the conversation runs on a connection bound to the send deadline.
type SMTPTransport struct {
	dialer  *gomail.Dialer
	timeout time.Duration
	logger  *slog.Logger
	send    func(context.Context, *gomail.Message) error
}

// NewSMTPTransport returns a transport for the given server.
func NewSMTPTransport(opts SMTPOptions) (*SMTPTransport, error) {
	if opts.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("invalid smtp port: %d", opts.Port)
	}

	d := gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password)
	d.SSL = opts.ImplicitTLS
	d.TLSConfig = &tls.Config{
		ServerName:         opts.Host,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // opt-in for local relays
		MinVersion:         tls.VersionTLS12,
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InsecureSkipVerify {
		logger.Warn("smtp TLS certificate verification is disabled", "host", opts.Host)
	}

	t := &SMTPTransport{
		dialer:  d,
		timeout: timeout,
		logger:  logger.With("component", "smtp_transport"),
	}
	t.send = t.deliver
	return t, nil
}

func buildGomailMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ID != "" {
		m.SetHeader("Message-ID", msg.ID)
	}
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}

// Send dials the server and delivers msg within the transport timeout.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	if err := t.send(ctx, buildGomailMessage(msg)); err != nil {
		// The connection deadline can fire a moment before ctx reports it.
		if ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
			cause := ctx.Err()
			if cause == nil {
				cause = context.DeadlineExceeded
			}
			return Receipt{}, &TransportError{
				Temporary: true,
				Err:       fmt.Errorf("smtp send timed out after %s: %w", time.Since(start).Round(time.Millisecond), cause),
			}
		}
		te := Classify(err)
		t.logger.WarnContext(ctx, "smtp send failed",
			"to", msg.To,
			"code", te.Code,
			"temporary", te.Temporary,
			"error", err,
		)
		return Receipt{}, te
	}

	t.logger.DebugContext(ctx, "smtp send accepted", "to", msg.To, "message_id", msg.ID)
	return Receipt{MessageID: msg.ID}, nil
}

// deliver runs one SMTP conversation. The connection deadline is ctx's deadline and
// cancelling ctx expires it at once, so blocked reads and writes return with ctx.
func (t *SMTPTransport) deliver(ctx context.Context, m *gomail.Message) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set smtp deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, t.dialer.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if !t.dialer.SSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(t.dialer.TLSConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if t.dialer.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", t.dialer.Username, t.dialer.Password, t.dialer.Host)
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	// gomail.Send flattens sender errors into text; keep the original for Classify.
	var sendErr error
	sender := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		sendErr = transmit(c, from, to, msg)
		return sendErr
	})
	if err := gomail.Send(sender, m); err != nil {
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	return c.Quit()
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(t.dialer.Host, strconv.Itoa(t.dialer.Port))
	if t.dialer.SSL {
		d := &tls.Dialer{Config: t.dialer.TLSConfig}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func transmit(c *smtp.Client, from string, to []string, msg io.WriterTo) error {
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

var _ Transport = (*SMTPTransport)(nil)
