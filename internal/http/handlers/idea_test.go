package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/yungbote/ideaforge-backend/internal/domain"
	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return &logger.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}
}

// stubIdeaService returns canned records; handler tests only exercise the
// HTTP surface.
type stubIdeaService struct {
	idea      *domain.Idea
	err       error
	submitted bool
	savedStep *int
	saved     map[string]any
}

func (s *stubIdeaService) Create(ctx context.Context, owner uuid.UUID, text string) (*domain.Idea, error) {
	return s.idea, s.err
}
func (s *stubIdeaService) Get(ctx context.Context, owner uuid.UUID, id uuid.UUID) (*domain.Idea, error) {
	return s.idea, s.err
}
func (s *stubIdeaService) List(ctx context.Context, owner uuid.UUID) ([]*domain.Idea, error) {
	if s.idea == nil {
		return nil, s.err
	}
	return []*domain.Idea{s.idea}, s.err
}
func (s *stubIdeaService) SubmitForQuestions(ctx context.Context, owner uuid.UUID, id uuid.UUID) (*domain.Idea, error) {
	s.submitted = true
	return s.idea, s.err
}
func (s *stubIdeaService) SaveWizardProgress(ctx context.Context, owner uuid.UUID, id uuid.UUID, delta map[string]any, step *int) (*domain.Idea, error) {
	s.saved = delta
	s.savedStep = step
	return s.idea, s.err
}
func (s *stubIdeaService) CompleteWizard(ctx context.Context, owner uuid.UUID, id uuid.UUID) (*domain.Idea, error) {
	return s.idea, s.err
}
func (s *stubIdeaService) Delete(ctx context.Context, owner uuid.UUID, id uuid.UUID) error {
	return s.err
}

func newIdeaRouter(t *testing.T, svc *stubIdeaService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewIdeaHandler(testLogger(t), svc)
	r.GET("/api/ideas/:id", h.Get)
	r.PATCH("/api/ideas/:id", h.Patch)
	r.POST("/api/ideas/:id/complete-wizard", h.CompleteWizard)
	return r
}

func testIdea(status string, updatedAt time.Time) *domain.Idea {
	return &domain.Idea{
		ID:        uuid.New(),
		Status:    status,
		Text:      "an idea",
		UpdatedAt: updatedAt,
	}
}

func TestGetIdeaSetsConditionalHeaders(t *testing.T) {
	idea := testIdea(domain.StatusComplete, time.Now())
	r := newIdeaRouter(t, &stubIdeaService{idea: idea})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/ideas/"+idea.ID.String(), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if etag := w.Header().Get("ETag"); etag == "" {
		t.Fatal("missing ETag")
	}
	if lm := w.Header().Get("Last-Modified"); lm == "" {
		t.Fatal("missing Last-Modified")
	}
	if cc := w.Header().Get("Cache-Control"); cc != "private, max-age=5" {
		t.Fatalf("Cache-Control=%q", cc)
	}
}

func TestGetIdeaNoStoreWhileGenerating(t *testing.T) {
	idea := testIdea(domain.StatusGeneratingStage1, time.Now())
	r := newIdeaRouter(t, &stubIdeaService{idea: idea})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/ideas/"+idea.ID.String(), nil))

	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control=%q, want no-store", cc)
	}
}

func TestGetIdea304OnMatchingETag(t *testing.T) {
	idea := testIdea(domain.StatusComplete, time.Now())
	r := newIdeaRouter(t, &stubIdeaService{idea: idea})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/api/ideas/"+idea.ID.String(), nil))
	etag := w1.Header().Get("ETag")

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/ideas/"+idea.ID.String(), nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w2, req)

	if w2.Code != http.StatusNotModified {
		t.Fatalf("status=%d, want 304", w2.Code)
	}
	if w2.Body.Len() != 0 {
		t.Fatalf("304 carried a body: %s", w2.Body.String())
	}
}

func TestGetIdeaETagRotatesOnUpdate(t *testing.T) {
	idea := testIdea(domain.StatusComplete, time.Now())
	svc := &stubIdeaService{idea: idea}
	r := newIdeaRouter(t, svc)

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/api/ideas/"+idea.ID.String(), nil))
	etag := w1.Header().Get("ETag")

	// Record changed since the client's last poll.
	idea.UpdatedAt = idea.UpdatedAt.Add(time.Second)

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/ideas/"+idea.ID.String(), nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w2, req)

	if w2.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200 after update", w2.Code)
	}
	if w2.Header().Get("ETag") == etag {
		t.Fatal("ETag did not rotate with updated_at")
	}
}

func TestGetIdea304OnIfModifiedSince(t *testing.T) {
	updated := time.Now().Add(-time.Minute)
	idea := testIdea(domain.StatusComplete, updated)
	r := newIdeaRouter(t, &stubIdeaService{idea: idea})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/ideas/"+idea.ID.String(), nil)
	req.Header.Set("If-Modified-Since", updated.UTC().Format(http.TimeFormat))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("status=%d, want 304", w.Code)
	}
}

func TestPatchDispatchesStatusSubmit(t *testing.T) {
	idea := testIdea(domain.StatusGeneratingQuestions, time.Now())
	svc := &stubIdeaService{idea: idea}
	r := newIdeaRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/ideas/"+idea.ID.String(),
		strings.NewReader(`{"status":"generating_questions"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !svc.submitted {
		t.Fatal("submit not dispatched")
	}
}

func TestPatchDispatchesAutosave(t *testing.T) {
	idea := testIdea(domain.StatusQuestionsReady, time.Now())
	svc := &stubIdeaService{idea: idea}
	r := newIdeaRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/ideas/"+idea.ID.String(),
		strings.NewReader(`{"wizard_answers":{"q1":"yes"},"current_step":2}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.saved["q1"] != "yes" {
		t.Fatalf("delta=%v", svc.saved)
	}
	if svc.savedStep == nil || *svc.savedStep != 2 {
		t.Fatalf("step=%v", svc.savedStep)
	}
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.UpdatedAt.IsZero() {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestPatchRejectsMixedStatusAndAnswers(t *testing.T) {
	idea := testIdea(domain.StatusDraft, time.Now())
	r := newIdeaRouter(t, &stubIdeaService{idea: idea})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/ideas/"+idea.ID.String(),
		strings.NewReader(`{"status":"generating_questions","wizard_answers":{"q1":"x"}}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestPatchRejectsOtherStatusTargets(t *testing.T) {
	idea := testIdea(domain.StatusDraft, time.Now())
	r := newIdeaRouter(t, &stubIdeaService{idea: idea})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/ideas/"+idea.ID.String(),
		strings.NewReader(`{"status":"complete"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	svc := &stubIdeaService{err: apierr.StateConflict(nil)}
	r := newIdeaRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/ideas/"+uuid.NewString()+"/complete-wizard", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d, want 409", w.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error.Code != "state_conflict" {
		t.Fatalf("body=%s", w.Body.String())
	}
}
