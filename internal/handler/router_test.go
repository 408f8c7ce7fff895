package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/classifier"
	"github.com/yattcodes/ai-gateway/backend/internal/handler"
	"github.com/yattcodes/ai-gateway/backend/internal/ratelimit"
	chatService "github.com/yattcodes/ai-gateway/backend/internal/service/chat"
	"github.com/yattcodes/ai-gateway/backend/internal/service/document"
	"github.com/yattcodes/ai-gateway/backend/internal/service/generation"
	"github.com/yattcodes/ai-gateway/backend/internal/service/usage"
	"github.com/yattcodes/ai-gateway/backend/internal/storage"
)

const testSecret = "router-test-secret"

type stubExtractor struct{}

func (stubExtractor) Extract(string) (string, error) { return "", nil }

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, bool) (*generation.Result, error) {
	return &generation.Result{Type: generation.TypeText, Content: "ok"}, nil
}

func newTestRouter(t *testing.T, globalLimit int) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	store := storage.NewMemoryStorage()
	tracker := usage.NewTracker(store, logger)
	chatSvc := chatService.NewService(
		store,
		tracker,
		classifier.New(),
		ratelimit.NewWindow(10, time.Hour),
		stubGenerator{},
		logger,
	)
	docSvc := document.NewService(stubExtractor{}, stubGenerator{}, tracker, logger)

	return handler.NewRouter(handler.Options{
		ChatService:     chatSvc,
		DocumentService: docSvc,
		UploadDir:       t.TempDir(),
		AuthSecret:      testSecret,
		CORSOrigin:      "http://localhost:5173",
		GlobalLimit:     globalLimit,
		GlobalWindow:    15 * time.Minute,
		Logger:          logger,
	})
}

func signToken(t *testing.T, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRouterHealthUnauthenticated(t *testing.T) {
	router := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected status %q", body["status"])
	}
}

func TestRouterRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouterAcceptsSignedToken(t *testing.T) {
	router := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-7"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "\"totalMessages\":0") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestRouterGlobalLimitGatesMutatingRoutes(t *testing.T) {
	router := newTestRouter(t, 1)
	token := signToken(t, "user-9")

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hello"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(); code != http.StatusOK {
		t.Fatalf("first POST: expected 200, got %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second POST from the same client: expected 429, got %d", code)
	}

	// Read routes sit outside the limiter group and stay reachable.
	for _, target := range []string{"/api/chat/history", "/api/conversations"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s after cap: expected 200, got %d", target, rec.Code)
		}
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin %q", origin)
	}
}
