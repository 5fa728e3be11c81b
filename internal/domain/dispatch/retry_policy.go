package dispatch

import (
	"errors"
	"math/rand/v2"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultBackoffBase = 30 * time.Second
	DefaultBackoffMax  = 10 * time.Minute
	DefaultJitter      = 0.2
)

// ErrInvalidRetryPolicy indicates inconsistent retry settings.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// RetryPolicyOptions configure a RetryPolicy. Zero values take the defaults.
type RetryPolicyOptions struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// Jitter is the +/- fraction applied to each backoff, in [0, 1).
	Jitter float64
	// Rand returns a value in [0, 1). Tests replace it.
	Rand func() float64
}

// RetryPolicy decides the attempt ceiling and the delay between attempts.
type RetryPolicy struct {
	maxAttempts int
	base        time.Duration
	max         time.Duration
	jitter      float64
	rand        func() float64
}

// NewRetryPolicy validates opts and returns a policy.
func NewRetryPolicy(opts RetryPolicyOptions) (*RetryPolicy, error) {
	p := &RetryPolicy{
		maxAttempts: opts.MaxAttempts,
		base:        opts.BackoffBase,
		max:         opts.BackoffMax,
		jitter:      opts.Jitter,
		rand:        opts.Rand,
	}
	if p.maxAttempts == 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.base == 0 {
		p.base = DefaultBackoffBase
	}
	if p.max == 0 {
		p.max = DefaultBackoffMax
	}
	if p.rand == nil {
		p.rand = rand.Float64
	}

	switch {
	case p.maxAttempts < 1:
		return nil, errors.Join(ErrInvalidRetryPolicy, errors.New("max attempts must be at least 1"))
	case p.base < 0 || p.max < p.base:
		return nil, errors.Join(ErrInvalidRetryPolicy, errors.New("backoff max must be >= base >= 0"))
	case p.jitter < 0 || p.jitter >= 1:
		return nil, errors.Join(ErrInvalidRetryPolicy, errors.New("jitter must be in [0, 1)"))
	}
	return p, nil
}

// MaxAttempts returns the attempt ceiling.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Exhausted reports whether attempt (1-based) was the last one allowed.
// A task-level ceiling overrides the policy when positive.
func (p *RetryPolicy) Exhausted(attempt, taskMax int) bool {
	ceiling := p.maxAttempts
	if taskMax > 0 {
		ceiling = taskMax
	}
	return attempt >= ceiling
}

// Backoff returns the delay after the given failed attempt: base * 2^(attempt-1), capped and jittered.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.base
	for i := 1; i < attempt && d < p.max; i++ {
		d *= 2
	}
	d = min(d, p.max)

	if p.jitter > 0 && d > 0 {
		factor := 1 - p.jitter + 2*p.jitter*p.rand()
		d = time.Duration(float64(d) * factor)
	}
	return d
}
