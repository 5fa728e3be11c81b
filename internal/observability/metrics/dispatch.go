// Package metrics names the metrics the dispatch pipeline emits and keeps their tags consistent.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/mailq/internal/observability/errors"
	"github.com/target/mailq/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Dispatch transitions.
const (
	TransitionEnqueued  = "enqueued"
	TransitionAdmitted  = "admitted"
	TransitionDenied    = "denied"
	TransitionSent      = "sent"
	TransitionRetried   = "retried"
	TransitionReleased  = "released"
	TransitionFailed    = "failed"
	TransitionExhausted = "exhausted"
)

// DispatchMetric describes one step of a task through the pipeline.
type DispatchMetric struct {
	Transition string
	Result     string
	Attempt    int
	Duration   time.Duration
	Err        error
}

// EmitDispatchLifecycle counts the transition and, when Duration is set, records its timing.
func EmitDispatchLifecycle(sink statsd.Sink, in DispatchMetric) {
	if sink == nil {
		return
	}

	result := in.Result
	if result == "" {
		result = ResultSuccess
	}
	tags := map[string]string{
		"transition": in.Transition,
		"result":     result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("dispatch.transition", 1, tags)
	if in.Attempt > 1 && in.Transition == TransitionSent {
		sink.Count("dispatch.sent_after_retry", 1, CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("dispatch.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags copies a tag map; nil for an empty one.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
