package mail

import (
	"context"
	"log/slog"
)

// LogTransport accepts every message and logs it. For development only.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a LogTransport writing to logger.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger.With("component", "log_transport")}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, Classify(err)
	}
	t.logger.InfoContext(ctx, "email delivered to log",
		"message_id", msg.ID,
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"bytes", len(msg.Text),
	)
	return Receipt{MessageID: msg.ID, Preview: "log://" + msg.ID}, nil
}

var _ Transport = (*LogTransport)(nil)
