package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ideaforge-backend/internal/clients/redis"
	"github.com/yungbote/ideaforge-backend/internal/platform/envutil"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
	"github.com/yungbote/ideaforge-backend/internal/services"
)

type Clients struct {
	Redis *goredis.Client
	AI    services.AIClient
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis is optional; without it the rate limiter and dedup cache fall
	// back to their single-instance implementations.
	var rdb *goredis.Client
	if envutil.String("REDIS_ADDR", "") != "" {
		client, err := redis.New(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		rdb = client
	}

	ai, err := services.NewOpenAIClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	return Clients{Redis: rdb, AI: ai}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
