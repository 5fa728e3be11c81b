package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetryPolicy_Defaults(t *testing.T) {
	p, err := NewRetryPolicy(RetryPolicyOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts())
	assert.Equal(t, DefaultBackoffBase, p.Backoff(1))
}

func TestNewRetryPolicy_Invalid(t *testing.T) {
	cases := []RetryPolicyOptions{
		{MaxAttempts: -1},
		{BackoffBase: time.Minute, BackoffMax: time.Second},
		{Jitter: 1},
		{Jitter: -0.1},
	}
	for _, opts := range cases {
		_, err := NewRetryPolicy(opts)
		assert.ErrorIs(t, err, ErrInvalidRetryPolicy)
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p, err := NewRetryPolicy(RetryPolicyOptions{
		BackoffBase: 30 * time.Second,
		BackoffMax:  10 * time.Minute,
	})
	require.NoError(t, err)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{5, 8 * time.Minute},
		{6, 10 * time.Minute},
		{60, 10 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_BackoffJitter(t *testing.T) {
	r := 0.0
	p, err := NewRetryPolicy(RetryPolicyOptions{
		BackoffBase: 100 * time.Second,
		BackoffMax:  time.Hour,
		Jitter:      0.2,
		Rand:        func() float64 { return r },
	})
	require.NoError(t, err)

	assert.InDelta(t, float64(80*time.Second), float64(p.Backoff(1)), float64(time.Millisecond))
	r = 0.5
	assert.InDelta(t, float64(100*time.Second), float64(p.Backoff(1)), float64(time.Millisecond))
	r = 0.999
	assert.InDelta(t, float64(120*time.Second), float64(p.Backoff(1)), float64(time.Second))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	p, err := NewRetryPolicy(RetryPolicyOptions{MaxAttempts: 3})
	require.NoError(t, err)

	assert.False(t, p.Exhausted(1, 0))
	assert.False(t, p.Exhausted(2, 0))
	assert.True(t, p.Exhausted(3, 0))
	assert.True(t, p.Exhausted(1, 1), "task ceiling wins")
	assert.False(t, p.Exhausted(3, 5))
}
