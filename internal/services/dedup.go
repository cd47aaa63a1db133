package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ideaforge-backend/internal/data/repos"
	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

// DedupCache stores recent refine results so repeated identical requests skip
// the rate limiter and the AI call. Misses are never fatal; writes are
// last-write-wins.
type DedupCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
}

// DedupKey hashes identity plus normalized input into a stable cache key.
func DedupKey(identity string, input string) string {
	sum := sha256.Sum256([]byte(identity + "\x00" + NormalizeText(input)))
	return hex.EncodeToString(sum[:])
}

// NormalizeText lowercases and collapses runs of whitespace so trivial
// reformattings of the same idea hit the same cache entry.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ---- Redis implementation ----

type redisDedupCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewRedisDedupCache(baseLog *logger.Logger, rdb *goredis.Client) DedupCache {
	return &redisDedupCache{
		log:    baseLog.With("service", "RedisDedupCache"),
		rdb:    rdb,
		prefix: "refine:",
	}
}

func (c *redisDedupCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("dedup cache read failed", "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *redisDedupCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.log.Warn("dedup cache write failed", "error", err)
	}
}

// ---- DB-backed implementation (fallback when Redis is not configured) ----

type dbDedupCache struct {
	log  *logger.Logger
	repo repos.RefineCacheRepo
}

func NewDBDedupCache(baseLog *logger.Logger, repo repos.RefineCacheRepo) DedupCache {
	return &dbDedupCache{
		log:  baseLog.With("service", "DBDedupCache"),
		repo: repo,
	}
}

func (c *dbDedupCache) Get(ctx context.Context, key string) (string, bool) {
	entry, err := c.repo.Get(dbctx.Context{Ctx: ctx}, key)
	if err != nil {
		c.log.Warn("dedup cache read failed", "error", err)
		return "", false
	}
	if entry == nil {
		return "", false
	}
	return entry.Result, true
}

func (c *dbDedupCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	now := time.Now()
	err := c.repo.Upsert(dbctx.Context{Ctx: ctx}, &domain.RefineCacheEntry{
		Key:       key,
		Result:    value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		c.log.Warn("dedup cache write failed", "error", err)
		return
	}

	// Redis expires keys on its own; here expired rows are reaped on each
	// write so the table stays bounded by the write rate within one TTL.
	if purged, err := c.repo.PurgeExpired(dbctx.Context{Ctx: ctx}); err != nil {
		c.log.Warn("dedup cache purge failed", "error", err)
	} else if purged > 0 {
		c.log.Debug("dedup cache purged expired entries", "count", purged)
	}
}
