package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viraflow-api/internal/ai"
	"viraflow-api/internal/analytics"
	"viraflow-api/internal/logging"
	"viraflow-api/internal/privacy"
	"viraflow-api/internal/server"
	"viraflow-api/internal/tasks"
)

type stubCompleter struct {
	reply string
	panic bool
}

func (s stubCompleter) Complete(context.Context, ai.Request) (string, error) {
	if s.panic {
		panic("boom")
	}
	return s.reply, nil
}

func newRouter(t *testing.T, completer ai.Completer, maxBody int64) http.Handler {
	t.Helper()

	prompts, err := ai.LoadRegistry("", map[ai.Purpose]string{
		ai.PurposeExtract:   "m1",
		ai.PurposeCoach:     "m2",
		ai.PurposeDecompose: "m3",
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := analytics.MustNewMetrics(reg)
	h := tasks.New(analytics.InstrumentCompleter(completer, metrics), prompts, privacy.Masker{Enabled: true}, metrics, logging.Nop())

	return server.New(h, server.Options{
		Version:      "1.0.0",
		MaxBodyBytes: maxBody,
		Metrics:      analytics.MetricsHandler(reg),
		Log:          logging.Nop(),
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := serve(newRouter(t, stubCompleter{}, 0), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestStatusAndUnknownPath(t *testing.T) {
	app := newRouter(t, stubCompleter{}, 0)

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Vira Flow Brain is Active")

	rr = serve(app, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(app, httptest.NewRequest(http.MethodGet, "/analyze-mixed", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRequestID(t *testing.T) {
	app := newRouter(t, stubCompleter{}, 0)

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rr.Header().Get(server.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(server.HeaderRequestID, "abc-123")
	rr = serve(app, req)
	assert.Equal(t, "abc-123", rr.Header().Get(server.HeaderRequestID))
}

func TestCORS(t *testing.T) {
	app := newRouter(t, stubCompleter{}, 0)

	pre := httptest.NewRequest(http.MethodOptions, "/analyze-mixed", nil)
	pre.Header.Set("Origin", "https://app.example")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPost)
	pre.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Platform")
	rr := serve(app, pre)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	rr = serve(app, req)
	assert.Equal(t, "http://localhost:8081", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	app := newRouter(t, stubCompleter{reply: `{"extracted_tasks":[]}`}, 32)

	body := `{"text":"` + strings.Repeat("a", 100) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/analyze-mixed", strings.NewReader(body))
	rr := serve(app, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestPanicRecovered(t *testing.T) {
	app := newRouter(t, stubCompleter{panic: true}, 0)

	req := httptest.NewRequest(http.MethodPost, "/analyze-mixed", strings.NewReader(`{"text":"x"}`))
	rr := serve(app, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"detail":"internal server error"}`, rr.Body.String())
}

func TestPanicAfterWriteKeepsResponse(t *testing.T) {
	h := server.NewMiddleware(logging.Nop(), 0).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
		panic("late")
	}))

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"ok":true}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	app := newRouter(t, stubCompleter{reply: `{"extracted_tasks":[]}`}, 0)

	req := httptest.NewRequest(http.MethodPost, "/analyze-mixed", strings.NewReader(`{"text":"Buy milk"}`))
	req.Header.Set("X-Platform", "android")
	rr := serve(app, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `viraflow_gateway_requests_total{endpoint="/analyze-mixed",outcome="ok",platform="android"} 1`)
	assert.Contains(t, body, `viraflow_upstream_completion_duration_seconds_count{purpose="extract",status="ok"} 1`)
}
