package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestNewWindow_Config(t *testing.T) {
	w, err := NewWindow(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPerWindow, w.cfg.MaxPerWindow)
	assert.Equal(t, DefaultWindow, w.cfg.Window)

	_, err = NewWindow(Config{MaxPerWindow: -1})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWindow_TryAdmit(t *testing.T) {
	clock := newClock()
	w, err := NewWindow(Config{MaxPerWindow: 3, Window: time.Hour, Now: clock.Now})
	require.NoError(t, err)
	ctx := context.Background()

	for i := range 3 {
		d, admitErr := w.TryAdmit(ctx)
		require.NoError(t, admitErr)
		assert.True(t, d.Allowed, "admission %d", i)
		clock.Advance(10 * time.Minute)
	}

	// t=30m: full. The first slot frees at t=60m.
	d, err := w.TryAdmit(ctx)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Minute, d.RetryAfter)
	assert.Equal(t, 3, w.InWindow())

	clock.Advance(30 * time.Minute)
	d, err = w.TryAdmit(ctx)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "slot at exactly window boundary is free")

	d, err = w.TryAdmit(ctx)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 10*time.Minute, d.RetryAfter)
	assert.Equal(t, int64(4), w.Total())
}

func TestWindow_NeverExceedsCapInAnyRollingWindow(t *testing.T) {
	clock := newClock()
	const limit = 5
	w, err := NewWindow(Config{MaxPerWindow: limit, Window: time.Hour, Now: clock.Now})
	require.NoError(t, err)

	var admits []time.Time
	for range 24 * 60 / 7 {
		d, admitErr := w.TryAdmit(context.Background())
		require.NoError(t, admitErr)
		if d.Allowed {
			admits = append(admits, clock.Now())
		}
		clock.Advance(7 * time.Minute)
	}

	for i := range admits {
		in := 0
		for j := i; j < len(admits) && admits[j].Sub(admits[i]) < time.Hour; j++ {
			in++
		}
		assert.LessOrEqual(t, in, limit)
	}
}

func TestWindow_Concurrent(t *testing.T) {
	w, err := NewWindow(Config{MaxPerWindow: 10, Window: time.Hour})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, admitErr := w.TryAdmit(context.Background())
			assert.NoError(t, admitErr)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestWindow_CanceledContext(t *testing.T) {
	w, err := NewWindow(Config{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.TryAdmit(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, w.Total())
}

func TestPacer(t *testing.T) {
	p := NewPacer(0)
	for range 100 {
		require.NoError(t, p.Wait(context.Background()))
	}

	p = NewPacer(time.Hour)
	require.NoError(t, p.Wait(context.Background()), "first send is immediate")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Wait(ctx), "second send must wait an hour")
}
