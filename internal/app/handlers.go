package app

import (
	"github.com/yungbote/ideaforge-backend/internal/http/handlers"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

type Handlers struct {
	Health *handlers.HealthHandler
	Idea   *handlers.IdeaHandler
	Refine *handlers.RefineHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: handlers.NewHealthHandler(),
		Idea:   handlers.NewIdeaHandler(log, serviceset.Idea),
		Refine: handlers.NewRefineHandler(log, serviceset.Refine),
	}
}
