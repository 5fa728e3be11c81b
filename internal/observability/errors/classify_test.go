package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/mailq/internal/errors"
)

type replyError struct{ code int }

func (e *replyError) Error() string { return fmt.Sprintf("reply %d", e.code) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"app error", apperrors.Validation("bad"), "app_validation"},
		{"wrapped app error", fmt.Errorf("intake: %w", apperrors.NotFound("gone")), "app_not_found"},
		{"innermost type", fmt.Errorf("outer: %w", &replyError{code: 421}), "errors_replyerror"},
		{"plain", goerrors.New("boom"), "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
