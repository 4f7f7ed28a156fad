package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"ytthumbs/internal/domain"
	"ytthumbs/internal/http/handlers"
)

type nopGenerator struct{}

func (nopGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.PipelineResult, error) {
	return nil, domain.NewPipelineError(domain.ErrValidationFailed, domain.StageValidate, "prompt is required", nil)
}

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "ytthumbs_test_total", Help: "test"}))
	app := handlers.NewApp(nopGenerator{}, nil, zerolog.Nop())
	return NewRouter(app, Options{
		Logger:          zerolog.Nop(),
		Gatherer:        reg,
		RateLimitPerMin: 30,
		StaticDir:       dir,
	}), dir
}

func TestRouterRoutes(t *testing.T) {
	h, _ := newTestRouter(t)
	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/v1/healthz", "", http.StatusOK, `"ok"`},
		{http.MethodGet, "/metrics", "", http.StatusOK, "ytthumbs_test_total"},
		{http.MethodGet, "/static/a.jpg", "", http.StatusOK, "jpeg"},
		{http.MethodPost, "/v1/thumbnails/generate", `{"prompt":""}`, http.StatusBadRequest, "validation_failed"},
		{http.MethodGet, "/v1/thumbnails/generate", "", http.StatusMethodNotAllowed, ""},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tc.wantBody)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatal("missing X-Request-ID")
			}
		})
	}
}
