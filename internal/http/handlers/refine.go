package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ideaforge-backend/internal/http/middleware"
	"github.com/yungbote/ideaforge-backend/internal/http/response"
	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
	"github.com/yungbote/ideaforge-backend/internal/services"
)

type RefineHandler struct {
	log *logger.Logger
	svc services.RefineService
}

func NewRefineHandler(baseLog *logger.Logger, svc services.RefineService) *RefineHandler {
	return &RefineHandler{
		log: baseLog.With("handler", "RefineHandler"),
		svc: svc,
	}
}

type refineRequest struct {
	Text string `json:"text"`
}

func setRateLimitHeaders(c *gin.Context, rl *services.RateLimitResult) {
	if rl == nil {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt.Unix(), 10))
	if !rl.Allowed {
		retryAfter := int(time.Until(rl.ResetAt).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
	}
}

func (h *RefineHandler) Refine(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apierr.Validation(errors.New("invalid request body")))
		return
	}

	res, err := h.svc.Refine(c.Request.Context(), middleware.CallerIdentity(c), req.Text)
	if res != nil {
		setRateLimitHeaders(c, res.RateLimit)
	}
	if err != nil {
		response.Fail(c, err)
		return
	}

	if res.Skipped {
		response.OK(c, http.StatusOK, gin.H{
			"skip":     true,
			"guidance": res.Guidance,
		})
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"refined": res.Refined,
		"cached":  res.Cached,
	})
}
