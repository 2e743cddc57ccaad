package security

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"seatgrid/internal/status"
)

// bucketScriptSrc implements a token bucket entirely server-side so that
// check-and-decrement never interleaves with a concurrent caller's check
// (the same single-key-atomic-script technique the Reservation Core uses
// for hold/release).
const bucketScriptSrc = `
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local window_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
if elapsed >= window_ms then
	tokens = capacity
	last_refill = now_ms
end

local allowed = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return allowed
`

var bucketScript = redis.NewScript(bucketScriptSrc)

// Bucket names a rate-limit policy: a capacity of tokens replenished in
// full every window.
type Bucket struct {
	Prefix   string
	Capacity int
	Window   time.Duration
}

// RateLimitMetrics lets a RateLimiter report rejections without importing
// the monitoring package directly.
type RateLimitMetrics interface {
	ObserveRateLimitRejection(bucket string)
}

type noopRateLimitMetrics struct{}

func (noopRateLimitMetrics) ObserveRateLimitRejection(string) {}

// RateLimiter is a distributed token bucket keyed by a client-declared
// source identity (forwarded-for header, else TCP peer address). This is a
// cooperative shaping layer, not a security boundary: the key is trivially
// spoofed by a client not behind a trusted proxy. Security-critical
// decisions depend on AuthGate instead.
type RateLimiter struct {
	redis   *redis.Client
	metrics RateLimitMetrics

	// local is a cheap in-process pre-check that rejects obviously-abusive
	// callers before ever reaching Redis, one limiter per observed key.
	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		metrics: noopRateLimitMetrics{},
		local:   make(map[string]*rate.Limiter),
	}
}

// WithMetrics attaches a metrics sink, returning the limiter for chaining.
func (r *RateLimiter) WithMetrics(m RateLimitMetrics) *RateLimiter {
	if m != nil {
		r.metrics = m
	}
	return r
}

// Allow reports whether the caller identified by key may proceed under the
// given bucket policy. On Redis failure it fails open, without logging,
// rather than blocking all traffic on a degraded HSS.
func (r *RateLimiter) Allow(ctx context.Context, bucket Bucket, key string) error {
	if !r.allowLocal(bucket, key) {
		r.metrics.ObserveRateLimitRejection(bucket.Prefix)
		return status.ErrRateLimited
	}

	redisKey := bucket.Prefix + ":" + key
	now := time.Now()
	ttlSeconds := int64(bucket.Window/time.Second) * 5
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	res, err := bucketScript.Eval(ctx, r.redis, []string{redisKey},
		now.UnixMilli(),
		bucket.Capacity,
		bucket.Window.Milliseconds(),
		ttlSeconds,
	).Result()
	if err != nil {
		// Degraded HSS: don't let a rate-limiter outage take down the API.
		return nil
	}

	allowed, _ := res.(int64)
	if allowed != 1 {
		r.metrics.ObserveRateLimitRejection(bucket.Prefix)
		return status.ErrRateLimited
	}
	return nil
}

// allowLocal gives each (bucket, key) pair a small local token bucket sized
// to roughly 2x the distributed rate, cheaply absorbing bursts before they
// ever hit Redis.
func (r *RateLimiter) allowLocal(bucket Bucket, key string) bool {
	r.mu.Lock()
	lim, ok := r.local[bucket.Prefix+":"+key]
	if !ok {
		perSecond := float64(bucket.Capacity) / bucket.Window.Seconds()
		lim = rate.NewLimiter(rate.Limit(perSecond*2), bucket.Capacity*2)
		r.local[bucket.Prefix+":"+key] = lim
	}
	r.mu.Unlock()

	return lim.Allow()
}

// KeyFromRequest derives the rate-limit identity for a request: the first
// address in X-Forwarded-For if present, else the request's RemoteAddr.
func KeyFromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
