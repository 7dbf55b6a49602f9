package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/varejolabs/salesbot/internal/config"
	"github.com/varejolabs/salesbot/internal/intake"
	"github.com/varejolabs/salesbot/internal/session"
)

// --- tiny fakes for the injected collaborators ---

type fakeProcessor struct {
	events []intake.WebhookEvent
	err    error
}

func (f *fakeProcessor) Process(_ context.Context, ev intake.WebhookEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

type fakeSessions struct {
	snaps []session.Snapshot
	ended []string
}

func (f *fakeSessions) Snapshots() []session.Snapshot { return f.snaps }
func (f *fakeSessions) End(id string) bool {
	f.ended = append(f.ended, id)
	return true
}

func testConfig() config.Config {
	return config.Config{
		RateRPS:   100,
		RateBurst: 10,
		CORS:      config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:  config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:      config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *fakeProcessor, *fakeSessions) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	fp := &fakeProcessor{}
	fs := &fakeSessions{}
	RegisterRoutes(r, Deps{Processor: fp, Sessions: fs}, cfg)
	return r, fp, fs
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _, _ := newTestRouter(t, testConfig())

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (DELETE /webhook)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/webhook", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /webhook expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r, _, _ := newTestRouter(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_WebhookWired(t *testing.T) {
	r, fp, _ := newTestRouter(t, testConfig())

	body := `{"id":"evt-1","event":"message","session":"default","payload":{"id":"m1","from":"5511999887766@c.us","body":"hi"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /webhook = %d body=%s", w.Code, w.Body.String())
	}
	if len(fp.events) != 1 || fp.events[0].Payload.ID != "m1" {
		t.Fatalf("processor did not receive event: %+v", fp.events)
	}
}

func TestRegisterRoutes_AdminSurface(t *testing.T) {
	r, _, fs := newTestRouter(t, testConfig())
	fs.snaps = []session.Snapshot{{ConversationID: "c1"}}

	// listing
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /admin/sessions = %d", w.Code)
	}

	// listing compresses when the client asks for it
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}

	// ending a session
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/sessions/c1/end", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("POST /admin/sessions/c1/end = %d", w.Code)
	}
	if len(fs.ended) != 1 || fs.ended[0] != "c1" {
		t.Fatalf("End not called with id: %v", fs.ended)
	}
}

func TestRegisterRoutes_SwaggerDisabledByDefault(t *testing.T) {
	r, _, _ := newTestRouter(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with swagger disabled, got %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

// Smoke test that a request traverses otel + request id + ratelimit + security headers.
func TestPipeline_Smoke(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	r, _, _ := newTestRouter(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}
