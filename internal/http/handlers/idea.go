package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/http/middleware"
	"github.com/yungbote/ideaforge-backend/internal/http/response"
	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
	"github.com/yungbote/ideaforge-backend/internal/services"
)

type IdeaHandler struct {
	log *logger.Logger
	svc services.IdeaService
}

func NewIdeaHandler(baseLog *logger.Logger, svc services.IdeaService) *IdeaHandler {
	return &IdeaHandler{
		log: baseLog.With("handler", "IdeaHandler"),
		svc: svc,
	}
}

func ideaID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierr.Validation(errors.New("invalid idea id"))
	}
	return id, nil
}

type createIdeaRequest struct {
	Text string `json:"text"`
}

func (h *IdeaHandler) Create(c *gin.Context) {
	var req createIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apierr.Validation(errors.New("invalid request body")))
		return
	}
	idea, err := h.svc.Create(c.Request.Context(), middleware.CallerID(c), req.Text)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, idea)
}

func (h *IdeaHandler) List(c *gin.Context) {
	ideas, err := h.svc.List(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if ideas == nil {
		ideas = []*domain.Idea{}
	}
	response.OK(c, http.StatusOK, ideas)
}

func etagFor(idea *domain.Idea) string {
	return fmt.Sprintf("\"%s-%d\"", idea.ID, idea.UpdatedAt.UnixNano())
}

// Get serves the polling read path. Unchanged records answer 304 off ETag or
// Last-Modified so clients on a tight poll loop pay for headers only.
func (h *IdeaHandler) Get(c *gin.Context) {
	id, err := ideaID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	idea, err := h.svc.Get(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		response.Fail(c, err)
		return
	}

	etag := etagFor(idea)
	lastModified := idea.UpdatedAt.UTC().Truncate(time.Second)

	c.Header("ETag", etag)
	c.Header("Last-Modified", lastModified.Format(http.TimeFormat))
	if domain.IsGenerating(idea.Status) {
		c.Header("Cache-Control", "no-store")
	} else {
		c.Header("Cache-Control", "private, max-age=5")
	}

	if match := c.GetHeader("If-None-Match"); match != "" {
		if match == etag {
			c.Status(http.StatusNotModified)
			return
		}
	} else if since := c.GetHeader("If-Modified-Since"); since != "" {
		if t, pErr := http.ParseTime(since); pErr == nil && !lastModified.After(t) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	response.OK(c, http.StatusOK, idea)
}

type patchIdeaRequest struct {
	Status        *string        `json:"status,omitempty"`
	WizardAnswers map[string]any `json:"wizard_answers,omitempty"`
	CurrentStep   *int           `json:"current_step,omitempty"`
}

// Patch serves two distinct writes: the draft submission that launches
// question generation, and the wizard autosave merge.
func (h *IdeaHandler) Patch(c *gin.Context) {
	id, err := ideaID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req patchIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apierr.Validation(errors.New("invalid request body")))
		return
	}

	if req.Status != nil {
		if *req.Status != domain.StatusGeneratingQuestions {
			response.Fail(c, apierr.Validation(fmt.Errorf("status can only be set to %s", domain.StatusGeneratingQuestions)))
			return
		}
		if req.WizardAnswers != nil || req.CurrentStep != nil {
			response.Fail(c, apierr.Validation(errors.New("status submit and answer autosave are separate requests")))
			return
		}
		idea, err := h.svc.SubmitForQuestions(c.Request.Context(), middleware.CallerID(c), id)
		if err != nil {
			response.Fail(c, err)
			return
		}
		response.OK(c, http.StatusAccepted, idea)
		return
	}

	if req.WizardAnswers == nil && req.CurrentStep == nil {
		response.Fail(c, apierr.Validation(errors.New("nothing to update")))
		return
	}
	idea, err := h.svc.SaveWizardProgress(c.Request.Context(), middleware.CallerID(c), id, req.WizardAnswers, req.CurrentStep)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"updated_at":   idea.UpdatedAt,
		"current_step": idea.CurrentStep,
	})
}

func (h *IdeaHandler) Delete(c *gin.Context) {
	id, err := ideaID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CallerID(c), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"deleted": true})
}

// CompleteWizard answers immediately; the analysis itself runs detached and
// is observed through polling.
func (h *IdeaHandler) CompleteWizard(c *gin.Context) {
	id, err := ideaID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	idea, err := h.svc.CompleteWizard(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusAccepted, idea)
}
