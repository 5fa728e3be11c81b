package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mailq/internal/observability/statsd"
)

func TestEmitDispatchLifecycle(t *testing.T) {
	var rec statsd.Recorder

	EmitDispatchLifecycle(&rec, DispatchMetric{
		Transition: TransitionSent,
		Attempt:    3,
		Duration:   20 * time.Millisecond,
	})
	EmitDispatchLifecycle(&rec, DispatchMetric{
		Transition: TransitionRetried,
		Result:     ResultError,
		Err:        context.DeadlineExceeded,
	})

	transitions := rec.Named("dispatch.transition")
	require.Len(t, transitions, 2)
	assert.Equal(t, map[string]string{"transition": "sent", "result": "success"}, transitions[0].Tags)
	assert.Equal(t, "timeout", transitions[1].Tags["error_class"])

	assert.Len(t, rec.Named("dispatch.sent_after_retry"), 1)
	assert.Len(t, rec.Named("dispatch.duration"), 1)
}

func TestEmitDispatchLifecycleNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitDispatchLifecycle(nil, DispatchMetric{Transition: TransitionSent})
	})
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "1"}
	dst := CloneTags(src)
	dst["a"] = "2"
	assert.Equal(t, "1", src["a"])
}
