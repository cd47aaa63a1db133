package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ideaforge-backend/internal/platform/ctxutil"
)

// RequestContext seeds every request with a request id and the caller's
// network address. Auth middleware fills in the user id afterwards.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		ctx := c.Request.Context()
		ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{RequestID: requestID})
		ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{ClientAddr: c.ClientIP()})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
