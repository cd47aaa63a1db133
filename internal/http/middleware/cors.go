package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ideaforge-backend/internal/platform/envutil"
)

func CORS() gin.HandlerFunc {
	origins := envutil.String("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	cfg := cors.Config{
		AllowOrigins:     strings.Split(origins, ","),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "If-None-Match", "If-Modified-Since", "X-Request-ID"},
		ExposeHeaders:    []string{"ETag", "Last-Modified", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	return cors.New(cfg)
}
