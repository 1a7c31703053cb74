package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/config"
	"github.com/ericksa/contractlens/internal/middleware"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, name := range []string{"OPENROUTER_API_KEY", "CONTRACTLENS_LLM_API_KEY", "POSTGRES_URL"} {
		t.Setenv(name, "")
	}
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.Precedents.SQLite.Path = ":memory:"
	cfg.Standards.Dir = t.TempDir()
	cfg.Audit.Path = ":memory:"
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	h, cleanup, err := build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return h
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestBuild_Routes(t *testing.T) {
	h := newTestHandler(t, testConfig(t))

	w := get(h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = get(h, "/")
	assert.JSONEq(t, `{"status":"API Server is running"}`, w.Body.String())

	w = get(h, "/api/v1/standards")
	assert.JSONEq(t, `{"standards":[]}`, w.Body.String())

	w = get(h, "/configure/precedents")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"sqlite"`)
}

func TestBuild_Preflight(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuild_ChatWithoutModel(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"question":"Summarize the risks"}`))

	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sorry")

	w = get(h, "/api/v1/audit")
	assert.Contains(t, w.Body.String(), `"operation":"chat"`)
}

func TestBuild_MCPDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.MCP.Enabled = false
	h := newTestHandler(t, cfg)

	assert.Equal(t, http.StatusNotFound, get(h, "/mcp").Code)
}

func TestBuild_BadPrecedentBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Precedents.Backend = "chroma"
	cfg.Precedents.Chroma.Endpoint = ""

	_, _, err := build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
