// Package mail sends a single email through a pluggable Transport.
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultSender is used when neither the submission nor the configuration names a sender.
const DefaultSender = "no-reply@example.com"

// Message is one outgoing email with a plain-text and an HTML part.
type Message struct {
	ID      string
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// NewMessage builds the message for a job. The HTML part wraps the escaped body in a paragraph.
func NewMessage(from, to, subject, body string) Message {
	return Message{
		ID:      newMessageID(from),
		From:    from,
		To:      to,
		Subject: subject,
		Text:    body,
		HTML:    "<p>" + html.EscapeString(body) + "</p>",
	}
}

func newMessageID(from string) string {
	domain := "mailq.local"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}

// Receipt describes an accepted message.
type Receipt struct {
	MessageID string
	// Preview is a link or note for inspecting the message, when the transport has one.
	Preview string
}

// Transport delivers a message. Implementations must honor ctx cancellation.
type Transport interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// TransportError is a classified delivery failure.
type TransportError struct {
	// Temporary is false for permanent rejections that a retry cannot fix.
	Temporary bool
	// Code is the SMTP reply code when the server produced one.
	Code int
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("smtp %d: %v", e.Code, e.Err)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify wraps err as a TransportError. 5xx replies are permanent;
// 4xx replies, timeouts and network errors are temporary.
func Classify(err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	var proto *textproto.Error
	if errors.As(err, &proto) {
		return &TransportError{Temporary: proto.Code < 500, Code: proto.Code, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransportError{Temporary: true, Err: err}
	}
	// gomail flattens reply errors from the data phase into text.
	if code := replyCodeFromText(err.Error()); code > 0 {
		return &TransportError{Temporary: code < 500, Code: code, Err: err}
	}
	return &TransportError{Temporary: true, Err: err}
}

var replyCodePattern = regexp.MustCompile(`(?:^|: )([45]\d\d)[ -]`)

func replyCodeFromText(s string) int {
	m := replyCodePattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

// IsPermanent reports whether err is a permanent delivery failure.
func IsPermanent(err error) bool {
	te := Classify(err)
	return te != nil && !te.Temporary
}
