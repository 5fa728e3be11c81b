// Package dispatch holds the delivery rules shared by the dispatch worker and the dispatcher loop:
// how an attempt ends, how long to wait before the next one, and how leases and wakeups behave.
package dispatch

import "errors"

// ErrNotReady reports that a dependency of the worker is unavailable. It never consumes an attempt.
var ErrNotReady = errors.New("dispatch: worker not ready")

// Kind is the disposition of one delivery attempt.
type Kind int

const (
	// KindSent means the transport accepted the message and the job was recorded as sent.
	KindSent Kind = iota + 1
	// KindRetryable means the task should be presented again later.
	KindRetryable
	// KindTerminal means the job was recorded as failed and the task must not run again.
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindSent:
		return "sent"
	case KindRetryable:
		return "retryable"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Result is what a Handler returns for a task.
type Result struct {
	Kind      Kind
	Err       error
	MessageID string
}

// Sent returns a successful result.
func Sent(messageID string) Result {
	return Result{Kind: KindSent, MessageID: messageID}
}

// Retryable returns a result asking for another attempt.
func Retryable(err error) Result {
	if err == nil {
		err = errors.New("retryable failure")
	}
	return Result{Kind: KindRetryable, Err: err}
}

// Terminal returns a result that ends the job.
func Terminal(err error) Result {
	if err == nil {
		err = errors.New("terminal failure")
	}
	return Result{Kind: KindTerminal, Err: err}
}

// NotReady reports whether the attempt was skipped because the worker was not ready.
func (r Result) NotReady() bool {
	return r.Kind == KindRetryable && errors.Is(r.Err, ErrNotReady)
}

// Reason returns the error text, or "" for a successful result.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
