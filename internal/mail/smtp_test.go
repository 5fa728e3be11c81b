package mail

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/gomail.v2"
)

func newTestSMTP(t *testing.T, send func(context.Context, *gomail.Message) error) *SMTPTransport {
	t.Helper()
	tr, err := NewSMTPTransport(SMTPOptions{Host: "smtp.example.com", Port: 587, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	tr.send = send
	return tr
}

func TestNewSMTPTransport_Validation(t *testing.T) {
	_, err := NewSMTPTransport(SMTPOptions{Port: 25})
	require.Error(t, err)
	_, err = NewSMTPTransport(SMTPOptions{Host: "smtp.example.com"})
	require.Error(t, err)

	tr, err := NewSMTPTransport(SMTPOptions{Host: "smtp.example.com", Port: 465, ImplicitTLS: true})
	require.NoError(t, err)
	assert.True(t, tr.dialer.SSL)
	assert.Equal(t, DefaultSendTimeout, tr.timeout)
	assert.Equal(t, "smtp.example.com", tr.dialer.TLSConfig.ServerName)
}

func TestSMTPTransport_Send(t *testing.T) {
	var got *gomail.Message
	tr := newTestSMTP(t, func(_ context.Context, m *gomail.Message) error {
		got = m
		return nil
	})

	msg := NewMessage("from@example.com", "to@example.com", "Subject", "Body")
	rcpt, err := tr.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, rcpt.MessageID)
	require.NotNil(t, got)
	assert.Equal(t, []string{"to@example.com"}, got.GetHeader("To"))
	assert.Equal(t, []string{"from@example.com"}, got.GetHeader("From"))
	assert.Equal(t, []string{msg.ID}, got.GetHeader("Message-ID"))
}

func TestSMTPTransport_SendPermanentFailure(t *testing.T) {
	tr := newTestSMTP(t, func(context.Context, *gomail.Message) error {
		return &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	})

	_, err := tr.Send(context.Background(), NewMessage("a@example.com", "b@example.com", "s", "b"))
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Temporary)
	assert.Equal(t, 550, te.Code)
}

func TestSMTPTransport_SendTimeout(t *testing.T) {
	tr := newTestSMTP(t, func(ctx context.Context, _ *gomail.Message) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	_, err := tr.Send(context.Background(), NewMessage("a@example.com", "b@example.com", "s", "b"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsPermanent(err))
}

func TestSMTPTransport_SendCanceled(t *testing.T) {
	tr := newTestSMTP(t, func(context.Context, *gomail.Message) error {
		time.Sleep(20 * time.Millisecond)
		return errors.New("should be ignored")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Send(ctx, NewMessage("a@example.com", "b@example.com", "s", "b"))
	require.ErrorIs(t, err, context.Canceled)
}

// fakeSMTPServer accepts one connection and speaks just enough SMTP for a plain delivery.
type fakeSMTPServer struct {
	ln        net.Listener
	rcptReply string
	data      chan string
}

func startFakeSMTP(t *testing.T, rcptReply string) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	s := &fakeSMTPServer{ln: ln, rcptReply: rcptReply, data: make(chan string, 1)}
	go s.serve()
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	tc := textproto.NewConn(conn)
	_ = tc.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tc.ReadLine()
		if err != nil {
			return
		}
		verb, _, _ := strings.Cut(strings.ToUpper(line), " ")
		switch verb {
		case "EHLO", "HELO":
			_ = tc.PrintfLine("250 localhost")
		case "MAIL":
			_ = tc.PrintfLine("250 OK")
		case "RCPT":
			_ = tc.PrintfLine("%s", s.rcptReply)
		case "DATA":
			_ = tc.PrintfLine("354 go ahead")
			body, err := tc.ReadDotBytes()
			if err != nil {
				return
			}
			s.data <- string(body)
			_ = tc.PrintfLine("250 queued")
		case "QUIT":
			_ = tc.PrintfLine("221 bye")
			return
		default:
			_ = tc.PrintfLine("502 not implemented")
		}
	}
}

func TestSMTPTransport_DeliversOverSMTP(t *testing.T) {
	srv := startFakeSMTP(t, "250 OK")
	tr, err := NewSMTPTransport(SMTPOptions{Host: "127.0.0.1", Port: srv.port(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	msg := NewMessage("from@example.com", "to@example.com", "Greetings", "Hello there")
	rcpt, err := tr.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, rcpt.MessageID)

	select {
	case body := <-srv.data:
		assert.Contains(t, body, "Subject: Greetings")
		assert.Contains(t, body, "Hello there")
	case <-time.After(time.Second):
		t.Fatal("server never received the message")
	}
}

func TestSMTPTransport_RejectedRecipientIsPermanent(t *testing.T) {
	srv := startFakeSMTP(t, "550 5.1.1 no such user")
	tr, err := NewSMTPTransport(SMTPOptions{Host: "127.0.0.1", Port: srv.port(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), NewMessage("a@example.com", "nobody@example.com", "s", "b"))
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 550, te.Code)
	assert.True(t, IsPermanent(err))
}

func TestSMTPTransport_StalledServerReleasesConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// The server never greets. It reports when the client hangs up.
	hungUp := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		for {
			if _, err := conn.Read(buf); err != nil {
				close(hungUp)
				return
			}
		}
	}()

	tr, err := NewSMTPTransport(SMTPOptions{
		Host:    "127.0.0.1",
		Port:    ln.Addr().(*net.TCPAddr).Port,
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = tr.Send(context.Background(), NewMessage("a@example.com", "b@example.com", "s", "b"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsPermanent(err))

	select {
	case <-hungUp:
	case <-time.After(time.Second):
		t.Fatal("connection still open after the send timed out")
	}
}

func TestSMTPTransport_CancelAbortsConversation(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Read(make([]byte, 1))
	}()

	tr, err := NewSMTPTransport(SMTPOptions{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port, Timeout: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = tr.Send(ctx, NewMessage("a@example.com", "b@example.com", "s", "b"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLogTransport_Send(t *testing.T) {
	tr := NewLogTransport(nil)
	msg := NewMessage("a@example.com", "b@example.com", "s", "b")
	rcpt, err := tr.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, rcpt.MessageID)
	assert.Equal(t, "log://"+msg.ID, rcpt.Preview)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Send(ctx, msg)
	require.Error(t, err)
}
