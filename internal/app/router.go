package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ideaforge-backend/internal/server"
)

func wireRouter(handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		HealthHandler: handlerset.Health,
		IdeaHandler:   handlerset.Idea,
		RefineHandler: handlerset.Refine,

		RequestContext: mw.RequestContext,
		RequestLog:     mw.RequestLog,
		CORS:           mw.CORS,
		RequireAuth:    mw.RequireAuth,
		OptionalAuth:   mw.OptionalAuth,
	})
}
