package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestcrest/gatehouse/internal/captcha"
	"github.com/harvestcrest/gatehouse/internal/chat"
	"github.com/harvestcrest/gatehouse/internal/guard"
	"github.com/harvestcrest/gatehouse/internal/platform/server"
)

func TestServer_HealthCheck(t *testing.T) {
	srv := server.New(":0", server.Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ReadinessCheck_NoDB(t *testing.T) {
	srv := server.New(":0", server.Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "in-memory pipeline is ready without a database")
}

func TestServer_NotFound(t *testing.T) {
	srv := server.New(":0", server.Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	srv := server.New("127.0.0.1:0", server.Dependencies{})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// Give server time to start, then cancel
	cancel()

	err := <-errCh
	assert.NoError(t, err)
}

func newTestDeps() server.Dependencies {
	reputation := guard.NewReputationStore(3, time.Hour)
	limiter := guard.NewRateLimiter(time.Minute, 10, reputation)
	defender := guard.NewDefender(guard.NewClassifier(guard.DefaultMaxMessageLength), limiter, reputation)
	captchaStore := captcha.NewStore(5*time.Minute, 3)

	return server.Dependencies{
		Handlers: []server.RouteRegistrar{chat.NewHandler(defender, captchaStore)},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestServer_RegistersHandlerRoutes(t *testing.T) {
	srv := server.New(":0", newTestDeps())

	body := bytes.NewReader([]byte(`{"content":"Hello there, how are you?","identity":"user-9"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/validate", body)
	req.RemoteAddr = "203.0.113.9:51000"
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IsValid bool `json:"isValid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsValid)
}

func TestServer_RequestIDHeader(t *testing.T) {
	srv := server.New(":0", newTestDeps())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	deps := newTestDeps()
	deps.CORSAllowedOrigins = []string{"https://app.example.com"}
	srv := server.New(":0", deps)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat/validate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
