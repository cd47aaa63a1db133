package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/ideaforge-backend/internal/data/repos"
	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

// AdmissionController caps how many Stage-1 analyses may run concurrently,
// per user and across the deployment. The check runs before the guarded
// status transition; the transition's compare-and-set bounds how far the
// check-then-act window can over-admit.
type AdmissionController interface {
	TryAdmit(ctx context.Context, userID uuid.UUID) error
}

type admissionController struct {
	log       *logger.Logger
	ideaRepo  repos.IdeaRepo
	userCap   int
	globalCap int
}

func NewAdmissionController(baseLog *logger.Logger, ideaRepo repos.IdeaRepo, userCap int, globalCap int) AdmissionController {
	return &admissionController{
		log:       baseLog.With("service", "AdmissionController"),
		ideaRepo:  ideaRepo,
		userCap:   userCap,
		globalCap: globalCap,
	}
}

func (a *admissionController) TryAdmit(ctx context.Context, userID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}

	if a.userCap > 0 {
		userCount, err := a.ideaRepo.CountByOwnerAndStatus(dbc, userID, domain.StatusGeneratingStage1)
		if err != nil {
			return err
		}
		if userCount >= int64(a.userCap) {
			a.log.Info("admission denied: per-user cap reached", "user_id", userID, "running", userCount, "cap", a.userCap)
			return apierr.AdmissionDenied(fmt.Errorf("too many analyses running, try again when one finishes"))
		}
	}

	if a.globalCap > 0 {
		globalCount, err := a.ideaRepo.CountByStatus(dbc, domain.StatusGeneratingStage1)
		if err != nil {
			return err
		}
		if globalCount >= int64(a.globalCap) {
			a.log.Warn("admission denied: global cap reached", "running", globalCount, "cap", a.globalCap)
			return apierr.AdmissionDenied(fmt.Errorf("the service is at capacity, try again shortly"))
		}
	}

	return nil
}
