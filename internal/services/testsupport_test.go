package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"

	"github.com/yungbote/ideaforge-backend/internal/data/repos"
	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return &logger.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}
}

// ---- in-memory IdeaRepo with real compare-and-set semantics ----

type fakeIdeaRepo struct {
	mu    sync.Mutex
	ideas map[uuid.UUID]*domain.Idea
}

func newFakeIdeaRepo() *fakeIdeaRepo {
	return &fakeIdeaRepo{ideas: map[uuid.UUID]*domain.Idea{}}
}

func (r *fakeIdeaRepo) put(idea *domain.Idea) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *idea
	r.ideas[idea.ID] = &cp
}

func (r *fakeIdeaRepo) Create(dbc dbctx.Context, ideas []*domain.Idea) ([]*domain.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, idea := range ideas {
		cp := *idea
		r.ideas[idea.ID] = &cp
	}
	return ideas, nil
}

func (r *fakeIdeaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idea, ok := r.ideas[id]
	if !ok {
		return nil, nil
	}
	cp := *idea
	return &cp, nil
}

func (r *fakeIdeaRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*domain.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Idea
	for _, idea := range r.ideas {
		if idea.OwnerUserID == ownerUserID {
			cp := *idea
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeIdeaRepo) UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, expectedStatus string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idea, ok := r.ideas[id]
	if !ok || idea.Status != expectedStatus {
		return repos.ErrStateConflict
	}
	applyIdeaUpdates(idea, updates)
	idea.UpdatedAt = time.Now()
	return nil
}

func (r *fakeIdeaRepo) MergeAnswers(dbc dbctx.Context, id uuid.UUID, delta map[string]any, currentStep *int) (*domain.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idea, ok := r.ideas[id]
	if !ok {
		return nil, nil
	}
	answers, err := idea.AnswersMap()
	if err != nil {
		return nil, err
	}
	for k, v := range delta {
		answers[k] = v
	}
	if err := setAnswers(idea, answers); err != nil {
		return nil, err
	}
	if currentStep != nil {
		idea.CurrentStep = *currentStep
	}
	idea.UpdatedAt = time.Now()
	cp := *idea
	return &cp, nil
}

func (r *fakeIdeaRepo) CountByStatus(dbc dbctx.Context, status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, idea := range r.ideas {
		if idea.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeIdeaRepo) CountByOwnerAndStatus(dbc dbctx.Context, ownerUserID uuid.UUID, status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, idea := range r.ideas {
		if idea.OwnerUserID == ownerUserID && idea.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeIdeaRepo) DeleteByIDForOwner(dbc dbctx.Context, id uuid.UUID, ownerUserID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idea, ok := r.ideas[id]
	if !ok || idea.OwnerUserID != ownerUserID {
		return false, nil
	}
	delete(r.ideas, id)
	return true, nil
}

// ---- in-memory JobRunRepo ----

type fakeJobRunRepo struct {
	mu   sync.Mutex
	jobs []*domain.JobRun
}

func newFakeJobRunRepo() *fakeJobRunRepo {
	return &fakeJobRunRepo{}
}

func (r *fakeJobRunRepo) Create(dbc dbctx.Context, jobs []*domain.JobRun) ([]*domain.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range jobs {
		cp := *job
		r.jobs = append(r.jobs, &cp)
	}
	return jobs, nil
}

func (r *fakeJobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.ID == id {
			cp := *job
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*domain.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		now := time.Now()
		job.Status = domain.JobStatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		cp := *job
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeJobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.ID != id {
			continue
		}
		if v, ok := updates["status"].(string); ok {
			job.Status = v
		}
		if v, ok := updates["error"].(string); ok {
			job.Error = v
		}
		if v, ok := updates["last_error_at"].(time.Time); ok {
			job.LastErrorAt = &v
		}
		job.UpdatedAt = time.Now()
		return nil
	}
	return nil
}

func (r *fakeJobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	return nil
}

func (r *fakeJobRunRepo) SweepDeadLetters(dbc dbctx.Context, maxAttempts int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var moved int64
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusFailed && job.Attempts >= maxAttempts {
			job.Status = domain.JobStatusDead
			moved++
		}
	}
	return moved, nil
}

func (r *fakeJobRunRepo) HasRunnableForIdea(dbc dbctx.Context, ideaID uuid.UUID, jobType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.IdeaID == ideaID && job.JobType == jobType &&
			(job.Status == domain.JobStatusQueued || job.Status == domain.JobStatusRunning) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeJobRunRepo) jobsForIdea(ideaID uuid.UUID) []*domain.JobRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.JobRun
	for _, job := range r.jobs {
		if job.IdeaID == ideaID {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out
}

// ---- scripted AI client ----

type fakeAI struct {
	mu        sync.Mutex
	jsonCalls int

	jsonFn func(schemaName string) (map[string]any, error)
}

func (a *fakeAI) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	a.mu.Lock()
	a.jsonCalls++
	a.mu.Unlock()
	if a.jsonFn == nil {
		return map[string]any{}, nil
	}
	return a.jsonFn(schemaName)
}

func (a *fakeAI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.jsonCalls
}

// ---- dedup cache and rate limiter stubs ----

type fakeDedup struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{entries: map[string]string{}}
}

func (c *fakeDedup) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeDedup) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

type stubLimiter struct {
	mu     sync.Mutex
	checks int
	result RateLimitResult
}

func (l *stubLimiter) Check(ctx context.Context, identity string, endpoint string, limit int, window time.Duration) (RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks++
	res := l.result
	res.Limit = limit
	return res, nil
}

func allowAllLimiter() *stubLimiter {
	return &stubLimiter{result: RateLimitResult{Allowed: true, Remaining: 14, ResetAt: time.Now().Add(time.Minute)}}
}

func denyAllLimiter() *stubLimiter {
	return &stubLimiter{result: RateLimitResult{Allowed: false, Remaining: 0, ResetAt: time.Now().Add(time.Minute)}}
}

// ---- column-update application for the idea fake ----

func applyIdeaUpdates(idea *domain.Idea, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "status":
			idea.Status = v.(string)
		case "questions":
			idea.Questions = v.(datatypes.JSON)
		case "wizard_answers":
			idea.WizardAnswers = v.(datatypes.JSON)
		case "total_questions":
			idea.TotalQuestions = v.(int)
		case "current_step":
			idea.CurrentStep = v.(int)
		case "questions_generated_at":
			idea.QuestionsGeneratedAt = timePtrFromAny(v)
		case "wizard_completed_at":
			idea.WizardCompletedAt = timePtrFromAny(v)
		case "score":
			idea.Score = intPtrFromAny(v)
		case "risk_score":
			idea.RiskScore = intPtrFromAny(v)
		case "risk_analysis":
			idea.RiskAnalysis = v.(datatypes.JSON)
		case "ai_insights":
			idea.AIInsights = v.(datatypes.JSON)
		case "competitors":
			idea.Competitors = v.(datatypes.JSON)
		case "error_message":
			idea.ErrorMessage = v.(string)
		case "error_occurred_at":
			idea.ErrorOccurredAt = timePtrFromAny(v)
		case "updated_at":
			idea.UpdatedAt = v.(time.Time)
		}
	}
}

func timePtrFromAny(v interface{}) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	return nil
}

func intPtrFromAny(v interface{}) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case int:
		return &n
	case *int:
		return n
	}
	return nil
}

func setAnswers(idea *domain.Idea, answers map[string]any) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	idea.WizardAnswers = datatypes.JSON(raw)
	return nil
}
