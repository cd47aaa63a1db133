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

	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/services"
)

type stubRefineService struct {
	res      *services.RefineResult
	err      error
	identity string
}

func (s *stubRefineService) Refine(ctx context.Context, identity string, text string) (*services.RefineResult, error) {
	s.identity = identity
	return s.res, s.err
}

func newRefineRouter(t *testing.T, svc *stubRefineService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewRefineHandler(testLogger(t), svc)
	r.POST("/api/refine", h.Refine)
	return r
}

func postRefine(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/refine", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRefineHandlerSetsRateLimitHeaders(t *testing.T) {
	reset := time.Now().Add(42 * time.Second)
	svc := &stubRefineService{res: &services.RefineResult{
		Refined:   "sharper idea",
		RateLimit: &services.RateLimitResult{Allowed: true, Limit: 15, Remaining: 9, ResetAt: reset},
	}}
	r := newRefineRouter(t, svc)

	w := postRefine(r, `{"text":"my idea"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "15" {
		t.Fatalf("limit header=%q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Fatalf("remaining header=%q", got)
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("missing reset header")
	}
	if w.Header().Get("Retry-After") != "" {
		t.Fatal("Retry-After set on allowed request")
	}
}

func TestRefineHandlerDeniedSetsRetryAfter(t *testing.T) {
	svc := &stubRefineService{
		res: &services.RefineResult{
			RateLimit: &services.RateLimitResult{Allowed: false, Limit: 15, Remaining: 0, ResetAt: time.Now().Add(30 * time.Second)},
		},
		err: apierr.RateLimited(nil),
	}
	r := newRefineRouter(t, svc)

	w := postRefine(r, `{"text":"my idea"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
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
	if body.Success || body.Error.Code != "rate_limited" {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestRefineHandlerSkipOutcome(t *testing.T) {
	svc := &stubRefineService{res: &services.RefineResult{
		Skipped:  true,
		Guidance: "name the audience",
	}}
	r := newRefineRouter(t, svc)

	w := postRefine(r, `{"text":"stuff"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body struct {
		Data struct {
			Skip     bool   `json:"skip"`
			Guidance string `json:"guidance"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Data.Skip || body.Data.Guidance == "" {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestRefineHandlerRejectsBadBody(t *testing.T) {
	r := newRefineRouter(t, &stubRefineService{})
	w := postRefine(r, `{`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}
