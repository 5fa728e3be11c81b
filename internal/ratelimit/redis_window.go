package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the sorted set holding admission timestamps.
const DefaultRedisKey = "mailq:dispatch:window"

// serverNowMs is the Redis server clock in unix milliseconds. Every replica reads the
// same clock, so skew between dispatcher hosts cannot shift the window.
const serverNowMs = `
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
`

// Trim, count and add run in one script so concurrent replicas cannot both take the last slot.
// Returns {allowed, retry_after_ms}.
var admitScript = redis.NewScript(serverNowMs + `
local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
  redis.call('ZADD', key, now, ARGV[3])
  redis.call('PEXPIRE', key, window)
  return {1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = tonumber(oldest[2]) + window - now
if retry < 1 then
  retry = 1
end
return {0, retry}
`)

var countScript = redis.NewScript(serverNowMs + `
return redis.call('ZCOUNT', KEYS[1], '(' .. (now - tonumber(ARGV[1])), '+inf')
`)

// RedisWindow is a sliding-window Admitter shared through Redis. It ignores Config.Now
// and reads the Redis server clock instead.
type RedisWindow struct {
	client redis.UniversalClient
	key    string
	cfg    Config
}

// RedisWindowOptions configure NewRedisWindow.
type RedisWindowOptions struct {
	Client redis.UniversalClient
	Key    string
	Config Config
}

// NewRedisWindow returns a RedisWindow on opts.Key (DefaultRedisKey when empty).
func NewRedisWindow(opts RedisWindowOptions) (*RedisWindow, error) {
	if opts.Client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	c, err := opts.Config.normalized()
	if err != nil {
		return nil, err
	}
	key := opts.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisWindow{client: opts.Client, key: key, cfg: c}, nil
}

// TryAdmit runs the admission script once.
func (w *RedisWindow) TryAdmit(ctx context.Context) (Decision, error) {
	res, err := admitScript.Run(ctx, w.client, []string{w.key},
		w.cfg.Window.Milliseconds(),
		w.cfg.MaxPerWindow,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit admit: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit admit: unexpected reply %v", res)
	}
	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: msToDuration(res[1])}, nil
}

// InWindow returns the number of admissions currently in the set, trimmed to the window.
func (w *RedisWindow) InWindow(ctx context.Context) (int64, error) {
	n, err := countScript.Run(ctx, w.client, []string{w.key}, w.cfg.Window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("ratelimit count: %w", err)
	}
	return n, nil
}

var _ Admitter = (*RedisWindow)(nil)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
