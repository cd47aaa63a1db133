package app

import (
	"time"

	"github.com/yungbote/ideaforge-backend/internal/platform/envutil"
	"github.com/yungbote/ideaforge-backend/internal/services"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	JWTSecret string

	UserAdmissionCap   int
	GlobalAdmissionCap int

	RefineLimit  int
	RefineWindow time.Duration

	Generation services.GenerationConfig
}

func LoadConfig() Config {
	gen := services.DefaultGenerationConfig()
	gen.MaxRetries = envutil.Int("GENERATION_MAX_RETRIES", gen.MaxRetries)
	gen.BaseDelay = envutil.Duration("GENERATION_RETRY_BASE_DELAY", gen.BaseDelay)
	gen.WorkerTick = envutil.Duration("JOB_WORKER_TICK", gen.WorkerTick)
	gen.JobMaxAttempts = envutil.Int("JOB_MAX_ATTEMPTS", gen.JobMaxAttempts)
	gen.RetryDelay = envutil.Duration("JOB_RETRY_DELAY", gen.RetryDelay)
	gen.StaleRunning = envutil.Duration("JOB_STALE_RUNNING", gen.StaleRunning)

	return Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),

		JWTSecret: envutil.String("JWT_SECRET", "defaultsecret"),

		UserAdmissionCap:   envutil.Int("STAGE1_USER_CAP", 2),
		GlobalAdmissionCap: envutil.Int("STAGE1_GLOBAL_CAP", 10),

		RefineLimit:  envutil.Int("REFINE_RATE_LIMIT", services.DefaultRefineLimit),
		RefineWindow: envutil.Duration("REFINE_RATE_WINDOW", services.DefaultRefineWindow),

		Generation: gen,
	}
}
