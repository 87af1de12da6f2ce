package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/classroom/internal/app"
	"github.com/charlesng35/classroom/internal/pairing"
	"github.com/charlesng35/classroom/internal/realtime"
	"github.com/charlesng35/classroom/pkg/response"
)

func testConfig() *app.Config {
	return &app.Config{
		Server: app.ServerConfig{
			CORS: app.CORSConfig{AllowedOrigins: []string{"*"}},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
}

func newTestRouter(t *testing.T, cfg *app.Config) (*gin.Engine, *pairing.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := realtime.NewHub()
	registry := pairing.NewRegistry(pairing.WithWindow(time.Minute), pairing.WithObserver(hub))
	t.Cleanup(registry.Close)

	renderer, err := pairing.NewQRRenderer(128, "medium", "")
	require.NoError(t, err)

	router, err := NewRouter(cfg, Dependencies{Registry: registry, Renderer: renderer, Hub: hub})
	require.NoError(t, err)
	return router, registry
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(nil, Dependencies{Registry: pairing.NewRegistry()})
	require.Error(t, err)

	_, err = NewRouter(testConfig(), Dependencies{})
	require.Error(t, err)
}

func TestRouterPairingFlow(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := serve(router, method, "/api/qr/generate")
		require.Equal(t, http.StatusOK, w.Code, method)
		require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	}

	w := serve(router, http.MethodPost, "/api/qr/generate")
	var issued response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	id := issued.Data.(map[string]interface{})["id"].(string)

	w = serve(router, http.MethodGet, "/api/qr/code/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = serve(router, http.MethodPost, "/api/qr/auth/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"confirmed"`)

	w = serve(router, http.MethodGet, "/api/qr/auth/"+id)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "already confirmed")

	w = serve(router, http.MethodGet, "/api/qr/check/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"state":"authenticated"`)
}

func TestRouterHealth(t *testing.T) {
	router, registry := newTestRouter(t, testConfig())
	_, err := registry.Issue()
	require.NoError(t, err)

	w := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"tokens":{"valid":1,"authenticated":0}`)

	cfg := testConfig()
	cfg.Monitoring.Health.Enabled = false
	router, _ = newTestRouter(t, cfg)
	w = serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	rec := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	metricsRec := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, metricsRec.Code)

	body := metricsRec.Body.String()
	require.True(t, strings.Contains(body, `classroom_api_latency_seconds_count{method="GET",path="/health",status="200"}`), body)
}

func TestRouterMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Monitoring.Prometheus.Enabled = false
	router, _ := newTestRouter(t, cfg)

	w := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}
