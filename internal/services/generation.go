package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/ideaforge-backend/internal/data/repos"
	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/pkg/backoff"
	"github.com/yungbote/ideaforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

type GenerationConfig struct {
	// MaxRetries is the whole-operation attempt count per job execution. Each
	// attempt may itself retry at the HTTP layer inside the AI client.
	MaxRetries int
	BaseDelay  time.Duration

	WorkerTick     time.Duration
	JobMaxAttempts int
	RetryDelay     time.Duration
	StaleRunning   time.Duration
	SweepInterval  time.Duration
	Heartbeat      time.Duration
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		WorkerTick:     2 * time.Second,
		JobMaxAttempts: 3,
		RetryDelay:     30 * time.Second,
		StaleRunning:   5 * time.Minute,
		SweepInterval:  time.Minute,
		Heartbeat:      30 * time.Second,
	}
}

// GenerationService owns the detached background work: question generation
// and Stage-1 analysis. Jobs are durable rows, claimed by the worker loop;
// the idea's status column is the only coordination point with the request
// path, written through compare-and-set.
type GenerationService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, ideaID uuid.UUID, jobType string) (*domain.JobRun, error)
	StartWorker(ctx context.Context)
}

type generationService struct {
	log      *logger.Logger
	ideaRepo repos.IdeaRepo
	jobRepo  repos.JobRunRepo
	ai       AIClient
	cfg      GenerationConfig

	// extra backoff options, swappable in tests to skip real sleeps
	backoffOpts []backoff.Option
}

func NewGenerationService(baseLog *logger.Logger, ideaRepo repos.IdeaRepo, jobRepo repos.JobRunRepo, ai AIClient, cfg GenerationConfig) GenerationService {
	return &generationService{
		log:      baseLog.With("service", "GenerationService"),
		ideaRepo: ideaRepo,
		jobRepo:  jobRepo,
		ai:       ai,
		cfg:      cfg,
	}
}

// Enqueue records a durable job for the idea. Callers flip the idea's status
// first; a queued or running job of the same type makes this a no-op so a
// double submit cannot fan out twice.
func (s *generationService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, ideaID uuid.UUID, jobType string) (*domain.JobRun, error) {
	if jobType != domain.JobGenerateQuestions && jobType != domain.JobStage1Analysis {
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
	exists, err := s.jobRepo.HasRunnableForIdea(dbc, ideaID, jobType)
	if err != nil {
		return nil, err
	}
	if exists {
		s.log.Info("job already pending, skipping enqueue", "idea_id", ideaID, "job_type", jobType)
		return nil, nil
	}

	now := time.Now()
	job := &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		IdeaID:      ideaID,
		JobType:     jobType,
		Status:      domain.JobStatusQueued,
		Payload:     datatypes.JSON([]byte("{}")),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.jobRepo.Create(dbc, []*domain.JobRun{job}); err != nil {
		return nil, err
	}
	s.log.Info("job enqueued", "job_id", job.ID, "idea_id", ideaID, "job_type", jobType)
	return job, nil
}

// StartWorker launches the claim loop. It returns immediately; the loop stops
// when ctx is canceled.
func (s *generationService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.WorkerTick)
		defer ticker.Stop()
		sweeper := time.NewTicker(s.cfg.SweepInterval)
		defer sweeper.Stop()

		s.log.Info("generation worker started", "tick", s.cfg.WorkerTick.String())
		for {
			select {
			case <-ctx.Done():
				s.log.Info("generation worker stopped")
				return
			case <-sweeper.C:
				moved, err := s.jobRepo.SweepDeadLetters(dbctx.Context{Ctx: ctx}, s.cfg.JobMaxAttempts)
				if err != nil {
					s.log.Error("dead-letter sweep failed", "error", err)
				} else if moved > 0 {
					s.log.Warn("jobs moved to dead-letter", "count", moved)
				}
			case <-ticker.C:
				s.drainOnce(ctx)
			}
		}
	}()
}

func (s *generationService) drainOnce(ctx context.Context) {
	dbc := dbctx.Context{Ctx: ctx}
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := s.jobRepo.ClaimNextRunnable(dbc, s.cfg.JobMaxAttempts, s.cfg.RetryDelay, s.cfg.StaleRunning)
		if err != nil {
			s.log.Error("job claim failed", "error", err)
			return
		}
		if job == nil {
			return
		}
		s.runJob(ctx, job)
	}
}

func (s *generationService) runJob(ctx context.Context, job *domain.JobRun) {
	log := s.log.With("job_id", job.ID, "idea_id", job.IdeaID, "job_type", job.JobType, "attempt", job.Attempts)
	log.Info("job started")

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(s.cfg.Heartbeat)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				if err := s.jobRepo.Heartbeat(dbctx.Context{Ctx: hbCtx}, job.ID); err != nil {
					log.Warn("heartbeat failed", "error", err)
				}
			}
		}
	}()

	err := s.process(ctx, job)
	stopHeartbeat()

	dbc := dbctx.Context{Ctx: ctx}
	if err != nil {
		now := time.Now()
		log.Error("job failed", "error", err)
		if uErr := s.jobRepo.UpdateFields(dbc, job.ID, map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"error":         err.Error(),
			"last_error_at": now,
		}); uErr != nil {
			log.Error("failed to record job failure", "error", uErr)
		}
		return
	}
	if uErr := s.jobRepo.UpdateFields(dbc, job.ID, map[string]interface{}{
		"status": domain.JobStatusDone,
		"error":  "",
	}); uErr != nil {
		log.Error("failed to mark job done", "error", uErr)
		return
	}
	log.Info("job done")
}

func (s *generationService) process(ctx context.Context, job *domain.JobRun) error {
	dbc := dbctx.Context{Ctx: ctx}
	idea, err := s.ideaRepo.GetByID(dbc, job.IdeaID)
	if err != nil {
		return err
	}
	if idea == nil {
		// Idea deleted after enqueue; nothing left to do.
		s.log.Info("job target missing, skipping", "idea_id", job.IdeaID)
		return nil
	}

	switch job.JobType {
	case domain.JobGenerateQuestions:
		if idea.Status != domain.StatusGeneratingQuestions {
			s.log.Info("idea no longer awaiting questions, skipping", "idea_id", idea.ID, "status", idea.Status)
			return nil
		}
		return s.generateQuestions(ctx, idea)
	case domain.JobStage1Analysis:
		if idea.Status != domain.StatusGeneratingStage1 {
			s.log.Info("idea no longer awaiting analysis, skipping", "idea_id", idea.ID, "status", idea.Status)
			return nil
		}
		return s.runStage1(ctx, idea)
	}
	return fmt.Errorf("unknown job type %q", job.JobType)
}

func (s *generationService) retry(ctx context.Context, op func(ctx context.Context) error) error {
	opts := append([]backoff.Option{
		backoff.WithMaxAttempts(s.cfg.MaxRetries),
		backoff.WithBaseDelay(s.cfg.BaseDelay),
	}, s.backoffOpts...)
	return backoff.Retry(ctx, op, opts...)
}

// ---- question generation ----

func (s *generationService) generateQuestions(ctx context.Context, idea *domain.Idea) error {
	dbc := dbctx.Context{Ctx: ctx}

	var questions []domain.Question
	op := func(ctx context.Context) error {
		obj, err := s.ai.GenerateJSON(ctx, questionWizardSystemPrompt, idea.Text, "question_wizard", questionWizardSchema())
		if err != nil {
			return err
		}
		parsed, err := parseQuestions(obj)
		if err != nil {
			return err
		}
		questions = parsed
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		s.resolveFailure(dbc, idea.ID, domain.StatusGeneratingQuestions, domain.StatusGenerationFailed, err)
		return err
	}

	raw, err := json.Marshal(questions)
	if err != nil {
		s.resolveFailure(dbc, idea.ID, domain.StatusGeneratingQuestions, domain.StatusGenerationFailed, err)
		return err
	}

	now := time.Now()
	err = s.ideaRepo.UpdateStatusIf(dbc, idea.ID, domain.StatusGeneratingQuestions, map[string]interface{}{
		"status":                 domain.StatusQuestionsReady,
		"questions":              datatypes.JSON(raw),
		"total_questions":        len(questions),
		"questions_generated_at": now,
		"current_step":           0,
		"error_message":          "",
		"error_occurred_at":      nil,
	})
	if errors.Is(err, repos.ErrStateConflict) {
		s.log.Warn("idea status moved during question generation, discarding result", "idea_id", idea.ID)
		return nil
	}
	return err
}

func parseQuestions(obj map[string]any) ([]domain.Question, error) {
	rawList, ok := obj["questions"]
	if !ok {
		return nil, errors.New("model output missing questions")
	}
	encoded, err := json.Marshal(rawList)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := json.Unmarshal(encoded, &questions); err != nil {
		return nil, fmt.Errorf("undecodable question list: %w", err)
	}
	if len(questions) < 5 || len(questions) > 7 {
		return nil, fmt.Errorf("expected 5-7 questions, got %d", len(questions))
	}
	seen := map[string]bool{}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
	}
	return questions, nil
}

// ---- Stage-1 analysis ----

func (s *generationService) runStage1(ctx context.Context, idea *domain.Idea) error {
	dbc := dbctx.Context{Ctx: ctx}

	userPrompt, err := stage1UserPrompt(idea)
	if err != nil {
		s.resolveFailure(dbc, idea.ID, domain.StatusGeneratingStage1, domain.StatusStage1Failed, err)
		return err
	}

	var insights, risk, competitors map[string]any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.retry(gctx, func(ctx context.Context) error {
			obj, err := s.ai.GenerateJSON(ctx, stage1InsightsSystemPrompt, userPrompt, "stage1_insights", stage1InsightsSchema())
			if err != nil {
				return err
			}
			insights = obj
			return nil
		})
	})
	g.Go(func() error {
		return s.retry(gctx, func(ctx context.Context) error {
			obj, err := s.ai.GenerateJSON(ctx, stage1RiskSystemPrompt, userPrompt, "stage1_risk", stage1RiskSchema())
			if err != nil {
				return err
			}
			risk = obj
			return nil
		})
	})
	g.Go(func() error {
		return s.retry(gctx, func(ctx context.Context) error {
			obj, err := s.ai.GenerateJSON(ctx, stage1CompetitorsSystemPrompt, userPrompt, "stage1_competitors", stage1CompetitorsSchema())
			if err != nil {
				return err
			}
			competitors = obj
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		s.resolveFailure(dbc, idea.ID, domain.StatusGeneratingStage1, domain.StatusStage1Failed, err)
		return err
	}

	score, err := asIntInRange(insights["score"], 0, 100)
	if err != nil {
		err = fmt.Errorf("insights score: %w", err)
		s.resolveFailure(dbc, idea.ID, domain.StatusGeneratingStage1, domain.StatusStage1Failed, err)
		return err
	}
	riskScore, err := asIntInRange(risk["risk_score"], 0, 100)
	if err != nil {
		err = fmt.Errorf("risk score: %w", err)
		s.resolveFailure(dbc, idea.ID, domain.StatusGeneratingStage1, domain.StatusStage1Failed, err)
		return err
	}

	insightsRaw, err := json.Marshal(insights)
	if err != nil {
		return err
	}
	riskRaw, err := json.Marshal(risk)
	if err != nil {
		return err
	}
	competitorsRaw, err := json.Marshal(competitors["competitors"])
	if err != nil {
		return err
	}

	err = s.ideaRepo.UpdateStatusIf(dbc, idea.ID, domain.StatusGeneratingStage1, map[string]interface{}{
		"status":            domain.StatusComplete,
		"score":             score,
		"risk_score":        riskScore,
		"ai_insights":       datatypes.JSON(insightsRaw),
		"risk_analysis":     datatypes.JSON(riskRaw),
		"competitors":       datatypes.JSON(competitorsRaw),
		"error_message":     "",
		"error_occurred_at": nil,
	})
	if errors.Is(err, repos.ErrStateConflict) {
		s.log.Warn("idea status moved during analysis, discarding result", "idea_id", idea.ID)
		return nil
	}
	return err
}

func stage1UserPrompt(idea *domain.Idea) (string, error) {
	answers, err := idea.AnswersMap()
	if err != nil {
		return "", fmt.Errorf("decode wizard answers: %w", err)
	}
	answersRaw, err := json.Marshal(answers)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Idea: %s\n\nWizard answers (question id to answer):\n%s", idea.Text, string(answersRaw)), nil
}

// resolveFailure flips the idea into its terminal failure state. A CAS miss
// means something else already resolved the idea, which is fine.
func (s *generationService) resolveFailure(dbc dbctx.Context, ideaID uuid.UUID, expectedStatus string, failedStatus string, cause error) {
	now := time.Now()
	err := s.ideaRepo.UpdateStatusIf(dbc, ideaID, expectedStatus, map[string]interface{}{
		"status":            failedStatus,
		"error_message":     cause.Error(),
		"error_occurred_at": now,
	})
	if err != nil && !errors.Is(err, repos.ErrStateConflict) {
		s.log.Error("failed to record idea failure", "idea_id", ideaID, "error", err)
	}
}

func asIntInRange(v any, min, max int) (int, error) {
	f, err := asFloatValue(v)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if n < min || n > max {
		return 0, fmt.Errorf("value %d outside [%d,%d]", n, min, max)
	}
	return n, nil
}

func asFloatValue(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("not a number (%T)", v)
}
