// Package ratelimit gates dispatch with a sliding-window admission counter.
//
// An Admitter admits at most MaxPerWindow sends within any rolling Window. Window keeps
// the timestamps in process memory; RedisWindow keeps them in a sorted set so every
// replica shares one counter.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxPerWindow = 5
	DefaultWindow       = time.Hour
)

// ErrInvalidConfig indicates a non-positive limit or window.
var ErrInvalidConfig = errors.New("ratelimit: max per window and window must be positive")

// Decision is the answer to one admission request.
type Decision struct {
	Allowed bool
	// RetryAfter is how long until a slot frees up. Zero when Allowed.
	RetryAfter time.Duration
}

// Admitter is the single increment-and-check used before every send.
type Admitter interface {
	TryAdmit(ctx context.Context) (Decision, error)
}

// Config holds the window parameters shared by both implementations.
type Config struct {
	MaxPerWindow int
	Window       time.Duration
	// Now overrides the in-memory Window clock in tests. RedisWindow uses the server clock.
	Now func() time.Time
}

func (c Config) normalized() (Config, error) {
	if c.MaxPerWindow == 0 {
		c.MaxPerWindow = DefaultMaxPerWindow
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.MaxPerWindow < 0 || c.Window < 0 {
		return c, ErrInvalidConfig
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}
