package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
	"github.com/yungbote/ideaforge-backend/internal/services"
)

type Services struct {
	Verifier   services.TokenVerifier
	RateLimit  services.RateLimiter
	Dedup      services.DedupCache
	Admission  services.AdmissionController
	Refine     services.RefineService
	Generation services.GenerationService
	Idea       services.IdeaService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")

	var limiter services.RateLimiter
	var dedup services.DedupCache
	if clients.Redis != nil {
		limiter = services.NewRedisRateLimiter(log, clients.Redis)
		dedup = services.NewRedisDedupCache(log, clients.Redis)
	} else {
		log.Warn("redis not configured, using single-instance rate limiter and DB dedup cache")
		limiter = services.NewMemoryRateLimiter(log)
		dedup = services.NewDBDedupCache(log, reposet.RefineCache)
	}

	verifier := services.NewJWTVerifierWithSecret(cfg.JWTSecret)
	admission := services.NewAdmissionController(log, reposet.Idea, cfg.UserAdmissionCap, cfg.GlobalAdmissionCap)
	generation := services.NewGenerationService(log, reposet.Idea, reposet.JobRun, clients.AI, cfg.Generation)
	idea := services.NewIdeaService(log, db, reposet.Idea, generation, admission)
	refine := services.NewRefineService(log, clients.AI, dedup, limiter, cfg.RefineLimit, cfg.RefineWindow)

	return Services{
		Verifier:   verifier,
		RateLimit:  limiter,
		Dedup:      dedup,
		Admission:  admission,
		Refine:     refine,
		Generation: generation,
		Idea:       idea,
	}
}
