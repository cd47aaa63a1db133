package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ideaforge-backend/internal/data/repos"
	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

// IdeaService is the request-path orchestration over idea records: CRUD,
// wizard autosave and the two guarded submissions that hand an idea to the
// background worker.
type IdeaService interface {
	Create(ctx context.Context, ownerUserID uuid.UUID, text string) (*domain.Idea, error)
	Get(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) (*domain.Idea, error)
	List(ctx context.Context, ownerUserID uuid.UUID) ([]*domain.Idea, error)
	// SubmitForQuestions flips draft to generating_questions and enqueues the
	// question-generation job.
	SubmitForQuestions(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) (*domain.Idea, error)
	// SaveWizardProgress merges an answer delta key-wise; omitted keys keep
	// their stored values. Returns the merged record.
	SaveWizardProgress(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID, delta map[string]any, currentStep *int) (*domain.Idea, error)
	// CompleteWizard validates required answers, passes admission control and
	// flips the idea to generating_stage1.
	CompleteWizard(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) (*domain.Idea, error)
	Delete(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) error
}

type ideaService struct {
	log        *logger.Logger
	db         *gorm.DB
	ideaRepo   repos.IdeaRepo
	generation GenerationService
	admission  AdmissionController
}

func NewIdeaService(baseLog *logger.Logger, db *gorm.DB, ideaRepo repos.IdeaRepo, generation GenerationService, admission AdmissionController) IdeaService {
	return &ideaService{
		log:        baseLog.With("service", "IdeaService"),
		db:         db,
		ideaRepo:   ideaRepo,
		generation: generation,
		admission:  admission,
	}
}

func (s *ideaService) withTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if s.db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (s *ideaService) Create(ctx context.Context, ownerUserID uuid.UUID, text string) (*domain.Idea, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apierr.Validation(errors.New("idea text is required"))
	}
	if len(trimmed) > ideaTextMaxLen {
		return nil, apierr.Validation(fmt.Errorf("idea text exceeds %d characters", ideaTextMaxLen))
	}

	now := time.Now()
	idea := &domain.Idea{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Text:        trimmed,
		Status:      domain.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.ideaRepo.Create(dbctx.Context{Ctx: ctx}, []*domain.Idea{idea}); err != nil {
		return nil, err
	}
	s.log.Info("idea created", "idea_id", idea.ID, "owner", ownerUserID)
	return idea, nil
}

// loadOwned fetches the idea and enforces ownership. Missing records are 404,
// someone else's records are 403.
func (s *ideaService) loadOwned(dbc dbctx.Context, ownerUserID uuid.UUID, id uuid.UUID) (*domain.Idea, error) {
	idea, err := s.ideaRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if idea == nil {
		return nil, apierr.NotFound(errors.New("idea not found"))
	}
	if idea.OwnerUserID != ownerUserID {
		return nil, apierr.Forbidden(errors.New("idea belongs to another user"))
	}
	return idea, nil
}

func (s *ideaService) Get(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) (*domain.Idea, error) {
	return s.loadOwned(dbctx.Context{Ctx: ctx}, ownerUserID, id)
}

func (s *ideaService) List(ctx context.Context, ownerUserID uuid.UUID) ([]*domain.Idea, error) {
	return s.ideaRepo.ListByOwner(dbctx.Context{Ctx: ctx}, ownerUserID)
}

func (s *ideaService) SubmitForQuestions(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) (*domain.Idea, error) {
	var updated *domain.Idea
	err := s.withTx(ctx, func(dbc dbctx.Context) error {
		idea, err := s.loadOwned(dbc, ownerUserID, id)
		if err != nil {
			return err
		}
		err = s.ideaRepo.UpdateStatusIf(dbc, idea.ID, domain.StatusDraft, map[string]interface{}{
			"status":            domain.StatusGeneratingQuestions,
			"error_message":     "",
			"error_occurred_at": nil,
		})
		if errors.Is(err, repos.ErrStateConflict) {
			return apierr.StateConflict(fmt.Errorf("idea is %s, only drafts can be submitted", idea.Status))
		}
		if err != nil {
			return err
		}
		if _, err := s.generation.Enqueue(dbc, ownerUserID, idea.ID, domain.JobGenerateQuestions); err != nil {
			return err
		}
		idea.Status = domain.StatusGeneratingQuestions
		idea.ErrorMessage = ""
		idea.ErrorOccurredAt = nil
		updated = idea
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("idea submitted for questions", "idea_id", id)
	return updated, nil
}

func (s *ideaService) SaveWizardProgress(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID, delta map[string]any, currentStep *int) (*domain.Idea, error) {
	dbc := dbctx.Context{Ctx: ctx}
	idea, err := s.loadOwned(dbc, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if !domain.AnswersEditable(idea.Status) {
		return nil, apierr.StateConflict(fmt.Errorf("answers cannot be edited while idea is %s", idea.Status))
	}

	questions, err := idea.QuestionList()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	for key := range delta {
		if !known[key] {
			return nil, apierr.Validation(fmt.Errorf("unknown question id %q", key))
		}
	}
	if currentStep != nil {
		// Steps index into the question sequence, so len(questions) is out.
		if *currentStep < 0 || *currentStep >= idea.TotalQuestions {
			return nil, apierr.Validation(fmt.Errorf("current_step %d outside [0,%d)", *currentStep, idea.TotalQuestions))
		}
	}

	merged, err := s.ideaRepo.MergeAnswers(dbc, id, delta, currentStep)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(errors.New("idea not found"))
		}
		return nil, err
	}
	if merged == nil {
		return nil, apierr.NotFound(errors.New("idea not found"))
	}
	return merged, nil
}

func (s *ideaService) CompleteWizard(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) (*domain.Idea, error) {
	dbc := dbctx.Context{Ctx: ctx}
	idea, err := s.loadOwned(dbc, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if idea.Status != domain.StatusQuestionsReady && idea.Status != domain.StatusStage1Failed {
		return nil, apierr.StateConflict(fmt.Errorf("wizard cannot be completed while idea is %s", idea.Status))
	}

	questions, err := idea.QuestionList()
	if err != nil {
		return nil, err
	}
	answers, err := idea.AnswersMap()
	if err != nil {
		return nil, err
	}
	var problems []string
	for _, q := range questions {
		value, ok := answers[q.ID]
		if !ok {
			value = nil
		}
		if vErr := q.ValidateAnswer(value); vErr != nil {
			problems = append(problems, vErr.Error())
		}
	}
	if len(problems) > 0 {
		return nil, apierr.Validation(fmt.Errorf("wizard incomplete: %s", strings.Join(problems, "; ")))
	}

	if err := s.admission.TryAdmit(ctx, ownerUserID); err != nil {
		return nil, err
	}

	expected := idea.Status
	var updated *domain.Idea
	err = s.withTx(ctx, func(txc dbctx.Context) error {
		now := time.Now()
		err := s.ideaRepo.UpdateStatusIf(txc, idea.ID, expected, map[string]interface{}{
			"status":              domain.StatusGeneratingStage1,
			"wizard_completed_at": now,
			"error_message":       "",
			"error_occurred_at":   nil,
		})
		if errors.Is(err, repos.ErrStateConflict) {
			return apierr.StateConflict(errors.New("idea status changed, reload and try again"))
		}
		if err != nil {
			return err
		}
		if _, err := s.generation.Enqueue(txc, ownerUserID, idea.ID, domain.JobStage1Analysis); err != nil {
			return err
		}
		idea.Status = domain.StatusGeneratingStage1
		idea.WizardCompletedAt = &now
		idea.ErrorMessage = ""
		idea.ErrorOccurredAt = nil
		updated = idea
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("wizard completed, analysis started", "idea_id", id)
	return updated, nil
}

func (s *ideaService) Delete(ctx context.Context, ownerUserID uuid.UUID, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.loadOwned(dbc, ownerUserID, id); err != nil {
		return err
	}
	deleted, err := s.ideaRepo.DeleteByIDForOwner(dbc, id, ownerUserID)
	if err != nil {
		return err
	}
	if !deleted {
		return apierr.NotFound(errors.New("idea not found"))
	}
	s.log.Info("idea deleted", "idea_id", id)
	return nil
}
