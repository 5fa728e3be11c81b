package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Window is an in-process sliding-window Admitter.
type Window struct {
	cfg Config

	mu       sync.Mutex
	admitted []time.Time // oldest first

	total atomic.Int64
}

// NewWindow returns an empty in-memory window.
func NewWindow(cfg Config) (*Window, error) {
	c, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	return &Window{cfg: c, admitted: make([]time.Time, 0, c.MaxPerWindow)}, nil
}

// TryAdmit records an admission if fewer than MaxPerWindow happened in the trailing Window.
func (w *Window) TryAdmit(ctx context.Context) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.cfg.Now()
	cutoff := now.Add(-w.cfg.Window)
	drop := 0
	for drop < len(w.admitted) && !w.admitted[drop].After(cutoff) {
		drop++
	}
	w.admitted = append(w.admitted[:0], w.admitted[drop:]...)

	if len(w.admitted) < w.cfg.MaxPerWindow {
		w.admitted = append(w.admitted, now)
		w.total.Add(1)
		return Decision{Allowed: true}, nil
	}

	retry := w.admitted[0].Add(w.cfg.Window).Sub(now)
	return Decision{RetryAfter: max(retry, time.Millisecond)}, nil
}

// InWindow returns how many admissions the trailing window currently holds.
func (w *Window) InWindow() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.cfg.Now().Add(-w.cfg.Window)
	n := 0
	for _, t := range w.admitted {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// Total returns the number of admissions since construction.
func (w *Window) Total() int64 {
	return w.total.Load()
}

var _ Admitter = (*Window)(nil)
