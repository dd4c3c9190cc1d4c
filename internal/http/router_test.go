package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mindloom/support-backend/internal/config"
	"github.com/mindloom/support-backend/internal/domain"
	"github.com/mindloom/support-backend/internal/history"
)

// ---------- harness ----------

type stubCompleter struct {
	reply string
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, turns []domain.Turn, userMessage string) (string, error) {
	s.calls++
	return s.reply, nil
}

func newRouterDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.UserQuota{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		Port:        "8080",
		GinMode:     "test",
		APIBasePath: "/api/v1",

		DailyLimit:    2,
		HistoryWindow: 5,

		RateRPS:   1000,
		RateBurst: 1000,

		OTEL: config.OTELConfig{ServiceName: "support-backend-test"},
	}
}

func newTestEngine(t *testing.T, completer *stubCompleter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	RegisterRoutes(r, newRouterDB(t), history.NewMemoryStore(), completer, nil, testConfig())
	return r
}

func postChat(t *testing.T, r *gin.Engine, userID, message string) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"message": message})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------- tests ----------

func TestRouter_Health(t *testing.T) {
	r := newTestEngine(t, &stubCompleter{reply: "hi"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestEngine(t, &stubCompleter{reply: "hi"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRouter_NoRouteAndNoMethod(t *testing.T) {
	r := newTestEngine(t, &stubCompleter{reply: "hi"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("no route status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/chat", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no method status = %d", w.Code)
	}
}

func TestRouter_ChatRoundTrip(t *testing.T) {
	completer := &stubCompleter{reply: "You matter."}
	r := newTestEngine(t, completer)

	w := postChat(t, r, "u1", "I feel happy today")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if completer.calls != 1 {
		t.Fatalf("completer calls = %d", completer.calls)
	}
	var resp struct {
		Response string `json:"response"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "You matter." || resp.Language != "en" {
		t.Fatalf("envelope = %+v", resp)
	}

	// the exchange is visible through /history
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("X-User-ID", "u1")
	hw := httptest.NewRecorder()
	r.ServeHTTP(hw, req)
	if hw.Code != http.StatusOK {
		t.Fatalf("history status = %d", hw.Code)
	}
	var hist struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(hw.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if hist.Count != 2 {
		t.Fatalf("history count = %d, want 2", hist.Count)
	}
}

func TestRouter_ChatRequiresUserHeader(t *testing.T) {
	r := newTestEngine(t, &stubCompleter{reply: "hi"})

	w := postChat(t, r, "", "hello")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRouter_DailyQuotaEnforced(t *testing.T) {
	r := newTestEngine(t, &stubCompleter{reply: "hi"})

	for i := 0; i < 2; i++ {
		if w := postChat(t, r, "u1", "hello there"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, body = %s", i, w.Code, w.Body.String())
		}
	}
	w := postChat(t, r, "u1", "hello again")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	// a different user still has budget
	if w := postChat(t, r, "u2", "hello there"); w.Code != http.StatusOK {
		t.Fatalf("other user status = %d", w.Code)
	}
}

func TestRouter_DefaultCORSAndSecurityHeaders(t *testing.T) {
	r := newTestEngine(t, &stubCompleter{reply: "hi"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("ACAO = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
}

func TestRouter_CatalogEndpoints(t *testing.T) {
	r := newTestEngine(t, &stubCompleter{reply: "hi"})

	for _, path := range []string{"/api/v1/meditation-videos", "/api/v1/languages"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, w.Code)
		}
	}
}
