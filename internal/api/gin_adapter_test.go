package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polychat-monitor/internal/message"
)

func newTestEngine(t *testing.T, store Store, token, openAPIPath string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	engine := gin.New()
	RegisterGinRoutes(engine, NewHandler(store, logger, NewStringSorter(), 10), logger, NewTokenAuthenticator(token), openAPIPath)
	return engine
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGinRoutesRequireToken(t *testing.T) {
	engine := newTestEngine(t, &okStore{ids: []string{"s1"}}, "secret", "")

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(engine, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	req.Header.Set("Authorization", "bearer secret")
	w = serve(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":["s1"]`)

	// health stays open
	assert.Equal(t, http.StatusOK, serve(engine, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(engine, httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)
}

func TestGinRoutesCORSPreflight(t *testing.T) {
	engine := newTestEngine(t, &okStore{}, "secret", "")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/records", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	w := serve(engine, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dashboard.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestGinRoutesStreamRecords(t *testing.T) {
	store := &okStore{items: []message.Record{{ID: "r1", Stream: "10.0.0.1:5000->10.0.0.2:8000#3"}}, total: 1}
	engine := newTestEngine(t, store, "", "")

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/streams/10.0.0.1:5000-%3E10.0.0.2:8000%233/records?type=Direct", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "10.0.0.1:5000->10.0.0.2:8000#3", store.lastQuery.StreamID)
	assert.Equal(t, "Direct", store.lastQuery.Type)

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/records?direction=client", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", store.lastQuery.StreamID)
	assert.Equal(t, message.FromClient, store.lastQuery.Direction)
}

func TestGinRoutesOpenAPI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.3\n"), 0o644))

	engine := newTestEngine(t, &okStore{}, "", path)
	w := serve(engine, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "openapi: 3.0.3\n", w.Body.String())

	missing := newTestEngine(t, &okStore{}, "", filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, http.StatusNotFound, serve(missing, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)).Code)
}
