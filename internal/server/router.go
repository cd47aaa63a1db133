package server

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ideaforge-backend/internal/http/handlers"
)

type RouterConfig struct {
	HealthHandler *handlers.HealthHandler
	IdeaHandler   *handlers.IdeaHandler
	RefineHandler *handlers.RefineHandler

	RequestContext gin.HandlerFunc
	RequestLog     gin.HandlerFunc
	CORS           gin.HandlerFunc
	RequireAuth    gin.HandlerFunc
	OptionalAuth   gin.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cfg.CORS)
	router.Use(cfg.RequestContext)
	router.Use(cfg.RequestLog)

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthHandler.Check)

	// Refine is open to anonymous callers; identity falls back to a stable
	// hash of the client address.
	router.POST("/api/refine", cfg.OptionalAuth, cfg.RefineHandler.Refine)

	// ===============
	// || Protected ||
	// ===============
	ideas := router.Group("/api/ideas")
	ideas.Use(cfg.RequireAuth)
	{
		ideas.POST("", cfg.IdeaHandler.Create)
		ideas.GET("", cfg.IdeaHandler.List)
		ideas.GET("/:id", cfg.IdeaHandler.Get)
		ideas.PATCH("/:id", cfg.IdeaHandler.Patch)
		ideas.DELETE("/:id", cfg.IdeaHandler.Delete)
		ideas.POST("/:id/complete-wizard", cfg.IdeaHandler.CompleteWizard)
	}

	return router
}
