package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	tests := []struct {
		name         string
		result       Result
		wantKind     Kind
		wantNotReady bool
		wantReason   string
	}{
		{name: "sent", result: Sent("<id@mx>"), wantKind: KindSent},
		{name: "retryable", result: Retryable(errors.New("421 busy")), wantKind: KindRetryable, wantReason: "421 busy"},
		{name: "retryable nil error", result: Retryable(nil), wantKind: KindRetryable, wantReason: "retryable failure"},
		{
			name:         "not ready",
			result:       Retryable(fmt.Errorf("ping: %w", ErrNotReady)),
			wantKind:     KindRetryable,
			wantNotReady: true,
			wantReason:   "ping: dispatch: worker not ready",
		},
		{name: "terminal", result: Terminal(errors.New("550 no such user")), wantKind: KindTerminal, wantReason: "550 no such user"},
		{name: "terminal wrapping not ready is not retryable", result: Terminal(ErrNotReady), wantKind: KindTerminal, wantReason: ErrNotReady.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, tt.result.Kind)
			assert.Equal(t, tt.wantNotReady, tt.result.NotReady())
			assert.Equal(t, tt.wantReason, tt.result.Reason())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "sent", KindSent.String())
	assert.Equal(t, "retryable", KindRetryable.String())
	assert.Equal(t, "terminal", KindTerminal.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
