package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ideaforge-backend/internal/http/middleware"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

type Middleware struct {
	RequestContext gin.HandlerFunc
	RequestLog     gin.HandlerFunc
	CORS           gin.HandlerFunc
	RequireAuth    gin.HandlerFunc
	OptionalAuth   gin.HandlerFunc
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		RequestContext: middleware.RequestContext(),
		RequestLog:     middleware.RequestLog(log),
		CORS:           middleware.CORS(),
		RequireAuth:    middleware.RequireAuth(serviceset.Verifier),
		OptionalAuth:   middleware.OptionalAuth(serviceset.Verifier),
	}
}
