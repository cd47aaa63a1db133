package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a windowed admission gate keyed by identity+endpoint.
// Implementations must fail open on backend errors: availability over
// strictness for the cheap endpoints this protects.
type RateLimiter interface {
	Check(ctx context.Context, identity string, endpoint string, limit int, window time.Duration) (RateLimitResult, error)
}

// ---- Redis implementation (shared, atomic) ----

type redisRateLimiter struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisRateLimiter(baseLog *logger.Logger, rdb *goredis.Client) RateLimiter {
	return &redisRateLimiter{
		log: baseLog.With("service", "RedisRateLimiter"),
		rdb: rdb,
	}
}

func (l *redisRateLimiter) Check(ctx context.Context, identity string, endpoint string, limit int, window time.Duration) (RateLimitResult, error) {
	if limit <= 0 || window <= 0 {
		return RateLimitResult{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowSecs := int64(window.Seconds())
	now := time.Now()
	windowIdx := now.Unix() / windowSecs
	resetAt := time.Unix((windowIdx+1)*windowSecs, 0)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", identity, endpoint, windowIdx)

	// INCR is the atomic check-and-increment; the expiry only needs to be set
	// once per window key.
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a broken limiter backend must not take the endpoint down.
		l.log.Warn("rate limiter backend failed, allowing request", "error", err)
		return RateLimitResult{Allowed: true, Limit: limit, Remaining: limit, ResetAt: resetAt}, nil
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// ---- In-memory implementation (single-instance fallback only) ----

// memoryRateLimiter keeps window counters in a process-local map. Invisible
// across instances and reset on restart; wired only when Redis is not
// configured.
type memoryRateLimiter struct {
	log *logger.Logger

	mu      sync.Mutex
	windows map[string]*memoryWindow

	now func() time.Time
}

type memoryWindow struct {
	start time.Time
	count int
}

func NewMemoryRateLimiter(baseLog *logger.Logger) RateLimiter {
	return &memoryRateLimiter{
		log:     baseLog.With("service", "MemoryRateLimiter"),
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (l *memoryRateLimiter) Check(ctx context.Context, identity string, endpoint string, limit int, window time.Duration) (RateLimitResult, error) {
	if limit <= 0 || window <= 0 {
		return RateLimitResult{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	key := identity + ":" + endpoint
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= window {
		w = &memoryWindow{start: now}
		l.windows[key] = w
	}
	w.count++

	l.pruneLocked(now, window)

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   w.count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   w.start.Add(window),
	}, nil
}

func (l *memoryRateLimiter) pruneLocked(now time.Time, window time.Duration) {
	if len(l.windows) < 4096 {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*window {
			delete(l.windows, key)
		}
	}
}
