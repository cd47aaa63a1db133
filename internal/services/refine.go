package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

const (
	ideaTextMaxLen = 2000

	DefaultRefineLimit    = 15
	DefaultRefineWindow   = time.Minute
	DefaultRefineCacheTTL = 60 * time.Second
)

// RefineResult is the outcome of one refine request. RateLimit is set whenever
// the limiter was consulted, including on denial, so handlers can emit the
// X-RateLimit-* headers.
type RefineResult struct {
	Refined   string           `json:"refined,omitempty"`
	Skipped   bool             `json:"skipped"`
	Guidance  string           `json:"guidance,omitempty"`
	Cached    bool             `json:"cached"`
	RateLimit *RateLimitResult `json:"-"`
}

type RefineService interface {
	Refine(ctx context.Context, identity string, text string) (*RefineResult, error)
}

type refineService struct {
	log     *logger.Logger
	ai      AIClient
	cache   DedupCache
	limiter RateLimiter

	limit    int
	window   time.Duration
	cacheTTL time.Duration
}

func NewRefineService(baseLog *logger.Logger, ai AIClient, cache DedupCache, limiter RateLimiter, limit int, window time.Duration) RefineService {
	if limit <= 0 {
		limit = DefaultRefineLimit
	}
	if window <= 0 {
		window = DefaultRefineWindow
	}
	return &refineService{
		log:      baseLog.With("service", "RefineService"),
		ai:       ai,
		cache:    cache,
		limiter:  limiter,
		limit:    limit,
		window:   window,
		cacheTTL: DefaultRefineCacheTTL,
	}
}

// cachedRefinement is the serialized form stored in the dedup cache. Skipped
// outcomes are cached too: re-submitting the same vague text within the TTL
// should not burn rate-limit budget or another AI call.
type cachedRefinement struct {
	Refined  string `json:"refined,omitempty"`
	Skipped  bool   `json:"skipped"`
	Guidance string `json:"guidance,omitempty"`
}

// Refine runs the dedup check before the rate limiter, so a cache hit costs
// nothing against the caller's budget.
func (s *refineService) Refine(ctx context.Context, identity string, text string) (*RefineResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apierr.Validation(errors.New("idea text is required"))
	}
	if len(trimmed) > ideaTextMaxLen {
		return nil, apierr.Validation(fmt.Errorf("idea text exceeds %d characters", ideaTextMaxLen))
	}

	key := DedupKey(identity, trimmed)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var entry cachedRefinement
		if err := json.Unmarshal([]byte(raw), &entry); err == nil {
			s.log.Debug("refine cache hit", "key", key)
			return &RefineResult{
				Refined:  entry.Refined,
				Skipped:  entry.Skipped,
				Guidance: entry.Guidance,
				Cached:   true,
			}, nil
		}
		s.log.Warn("refine cache entry undecodable, treating as miss", "key", key)
	}

	limitRes, err := s.limiter.Check(ctx, identity, "refine", s.limit, s.window)
	if err != nil {
		// Limiter implementations fail open themselves; an error here is a bug,
		// but availability still wins.
		s.log.Error("rate limiter returned error, allowing request", "error", err)
		limitRes = RateLimitResult{Allowed: true, Limit: s.limit, Remaining: s.limit}
	}
	if !limitRes.Allowed {
		return &RefineResult{RateLimit: &limitRes},
			apierr.RateLimited(errors.New("too many refine requests, slow down"))
	}

	obj, err := s.ai.GenerateJSON(ctx, refineSystemPrompt, trimmed, "idea_refinement", refineSchema())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &RefineResult{RateLimit: &limitRes}, apierr.UpstreamTimeout(err)
		}
		return &RefineResult{RateLimit: &limitRes}, apierr.UpstreamFailure(err)
	}

	entry := cachedRefinement{
		Refined:  asString(obj["refined"]),
		Skipped:  asBool(obj["too_vague"]),
		Guidance: asString(obj["guidance"]),
	}
	if entry.Skipped && entry.Guidance == "" {
		entry.Guidance = "Add more detail about who the idea is for and what problem it solves."
	}
	if !entry.Skipped && entry.Refined == "" {
		return &RefineResult{RateLimit: &limitRes},
			apierr.UpstreamFailure(errors.New("model returned an empty refinement"))
	}

	if raw, mErr := json.Marshal(entry); mErr == nil {
		s.cache.Set(ctx, key, string(raw), s.cacheTTL)
	}

	return &RefineResult{
		Refined:   entry.Refined,
		Skipped:   entry.Skipped,
		Guidance:  entry.Guidance,
		RateLimit: &limitRes,
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
